package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/events"
	"deskhub/internal/models"
	"deskhub/internal/repository"
	"deskhub/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testEnv wires the services against a real sqlite database and the
// in-memory locker, with recorders in place of the bus subscribers and
// the ledger worker.
type testEnv struct {
	db           *database.DB
	files        *storage.FileStore
	bus          *events.EventBus
	ledger       *recordingLedger
	reservations *ReservationService
	offices      *OfficeService
	images       *ImageService

	mu        sync.Mutex
	published []*events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.New(zerolog.NewConsoleWriter())
	db, err := database.NewDB(filepath.Join(t.TempDir(), "deskhub.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	files, err := storage.NewFileStore(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	env := &testEnv{
		db:     db,
		files:  files,
		bus:    events.NewEventBus(),
		ledger: &recordingLedger{},
	}
	record := func(event *events.Event) error {
		env.mu.Lock()
		env.published = append(env.published, event)
		env.mu.Unlock()
		return nil
	}
	for _, eventType := range []string{
		events.EventReservationCreated,
		events.EventReservationCancelled,
		events.EventReservationStarting,
		events.EventOfficePendingApproval,
	} {
		env.bus.Subscribe(eventType, record)
	}

	locker := repository.NewMemoryLocker(repository.DefaultWaitBound)
	env.reservations = NewReservationService(db, locker, env.bus, env.ledger, repository.DefaultHoldTimeout, &logger)
	env.offices = NewOfficeService(db, files, env.bus, &logger)
	env.images = NewImageService(db, files, &logger)
	return env
}

func (e *testEnv) eventsOfType(eventType string) []*events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*events.Event
	for _, event := range e.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (e *testEnv) reservationPayload(t *testing.T, event *events.Event) events.ReservationEventPayload {
	t.Helper()
	var payload events.ReservationEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	return payload
}

type recordingLedger struct {
	mu       sync.Mutex
	appended []int64
	statuses map[int64]string
}

func (l *recordingLedger) EnqueueAppend(_ context.Context, res *models.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appended = append(l.appended, res.ID)
	return nil
}

func (l *recordingLedger) EnqueueStatus(_ context.Context, id int64, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.statuses == nil {
		l.statuses = make(map[int64]string)
	}
	l.statuses[id] = status
	return nil
}

func createTestUser(t *testing.T, db *database.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func createTestOffice(t *testing.T, db *database.DB, userID int64) *models.Office {
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
