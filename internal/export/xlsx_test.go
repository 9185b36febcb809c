package export

import (
	"testing"
	"time"

	"deskhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHostReservationsExport(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	exporter := NewExporter(t.TempDir(), &logger)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	reservations := []*models.Reservation{
		{
			ID:        1,
			UserID:    7,
			OfficeID:  2,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 9),
			Status:    models.ReservationActive,
			Price:     10000,
			Office:    &models.Office{ID: 2, Title: "Loft on Main"},
		},
		{
			ID:        2,
			UserID:    8,
			OfficeID:  2,
			StartDate: start.AddDate(0, 0, 20),
			EndDate:   start.AddDate(0, 0, 21),
			Status:    models.ReservationCancelled,
			Price:     2000,
		},
	}

	path, err := exporter.HostReservations(3, reservations)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Loft on Main", rows[1][1])
	assert.Equal(t, "2026-09-01", rows[1][3])
	assert.Equal(t, "10", rows[1][5]) // inclusive days
	assert.Equal(t, models.ReservationCancelled, rows[2][7])
}

func TestHostReservationsExportEmpty(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	exporter := NewExporter(t.TempDir(), &logger)

	path, err := exporter.HostReservations(3, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
