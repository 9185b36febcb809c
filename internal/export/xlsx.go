package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deskhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservations"

// Exporter writes host reservation reports as xlsx files.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// HostReservations writes the host's reservations to an xlsx file and
// returns its path.
func (e *Exporter) HostReservations(hostID int64, reservations []*models.Reservation) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Office", "Guest ID", "Start Date", "End Date", "Days", "Price", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	for i, res := range reservations {
		row := i + 2
		officeTitle := ""
		if res.Office != nil {
			officeTitle = res.Office.Title
		}
		values := []interface{}{
			res.ID,
			officeTitle,
			res.UserID,
			res.StartDate.Format(models.DateFormat),
			res.EndDate.Format(models.DateFormat),
			models.DaysInclusive(res.StartDate, res.EndDate),
			res.Price,
			res.Status,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "H", 16)
	_ = f.SetColWidth(sheetName, "B", "B", 28)

	fileName := fmt.Sprintf("host_%d_reservations_%s.xlsx", hostID, time.Now().Format("2006-01-02_150405"))
	path := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	e.logger.Info().Str("path", path).Int("rows", len(reservations)).Msg("reservations export created")
	return path, nil
}
