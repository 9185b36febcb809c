package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deskhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(zerolog.NewConsoleWriter())
	db, err := NewDB(filepath.Join(t.TempDir(), "deskhub.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func createTestOffice(t *testing.T, db *DB, userID int64) *models.Office {
	t.Helper()
	office := &models.Office{
		UserID:         userID,
		Title:          "Loft on Main",
		Description:    "Quiet loft with fiber internet",
		Lat:            52.52,
		Lng:            13.405,
		AddressLine1:   "Main St 1",
		ApprovalStatus: models.ApprovalApproved,
		PricePerDay:    1000,
	}
	require.NoError(t, db.CreateOffice(context.Background(), office, nil))
	return office
}

func day(offset int) time.Time {
	return models.Day(time.Now()).AddDate(0, 0, offset)
}
