package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/domain"
	"deskhub/internal/events"
	"deskhub/internal/metrics"
	"deskhub/internal/models"
	"deskhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ReservationService struct {
	store    domain.Store
	locker   repository.Locker
	eventBus domain.EventPublisher
	ledger   domain.LedgerWorker
	lockHold time.Duration
	logger   *zerolog.Logger
}

func NewReservationService(store domain.Store, locker repository.Locker, eventBus domain.EventPublisher, ledger domain.LedgerWorker, lockHold time.Duration, logger *zerolog.Logger) *ReservationService {
	if lockHold <= 0 {
		lockHold = repository.DefaultHoldTimeout
	}
	return &ReservationService{
		store:    store,
		locker:   locker,
		eventBus: eventBus,
		ledger:   ledger,
		lockHold: lockHold,
		logger:   logger,
	}
}

func lockKey(officeID int64) string {
	return fmt.Sprintf("reservations_office_%d", officeID)
}

// ValidateDates enforces the booking window: the stay starts no earlier
// than tomorrow and ends strictly after it starts.
func (s *ReservationService) ValidateDates(start, end time.Time) error {
	today := models.Day(time.Now())
	if !models.Day(start).After(today) {
		return ErrStartDateTooSoon
	}
	if !models.Day(end).After(models.Day(start)) {
		return ErrEndDateNotAfter
	}
	return nil
}

// CreateReservation admits a booking request. Checks run in a fixed order
// and the first failure wins: the office must exist, must not belong to the
// requester, must be approved and not hidden, and the dates must be valid.
// The overlap check and the insert then run under a per-office lock so two
// racing requests cannot both pass the check.
func (s *ReservationService) CreateReservation(ctx context.Context, userID, officeID int64, start, end time.Time) (*models.Reservation, error) {
	office, err := s.store.GetOffice(ctx, officeID)
	if err != nil {
		if errors.Is(err, database.ErrOfficeNotFound) {
			metrics.IncReservationRejected("invalid_office")
			return nil, ErrInvalidOffice
		}
		return nil, err
	}

	if office.UserID == userID {
		metrics.IncReservationRejected("self_reservation")
		return nil, ErrSelfReservation
	}

	if !office.Bookable() {
		metrics.IncReservationRejected("not_bookable")
		return nil, ErrOfficeNotBookable
	}

	// Date validation happens before taking the lock so malformed requests
	// never contend for it.
	if err := s.ValidateDates(start, end); err != nil {
		metrics.IncReservationRejected("invalid_dates")
		return nil, err
	}

	start = models.Day(start)
	end = models.Day(end)

	lock, err := s.locker.Acquire(ctx, lockKey(officeID), s.lockHold)
	if err != nil {
		if errors.Is(err, repository.ErrLockTimeout) {
			metrics.IncLockTimeout()
		}
		return nil, err
	}

	res, err := s.admit(ctx, userID, office, start, end)

	if releaseErr := lock.Release(ctx); releaseErr != nil {
		s.logger.Error().Err(releaseErr).Int64("office_id", officeID).Msg("release reservation lock error")
	}

	if err != nil {
		return nil, err
	}

	s.publishReservationEvent(events.EventReservationCreated, res, office)
	s.enqueueLedgerAppend(ctx, res)
	metrics.IncReservationCreated()

	return res, nil
}

// admit runs the overlap check and the insert. Callers must hold the
// office lock.
func (s *ReservationService) admit(ctx context.Context, userID int64, office *models.Office, start, end time.Time) (*models.Reservation, error) {
	conflict, err := s.store.HasActiveOverlapping(ctx, office.ID, start, end)
	if err != nil {
		return nil, err
	}
	if conflict {
		metrics.IncReservationRejected("date_conflict")
		return nil, ErrDateRangeConflict
	}

	days := models.DaysInclusive(start, end)
	res := &models.Reservation{
		UserID:       userID,
		OfficeID:     office.ID,
		StartDate:    start,
		EndDate:      end,
		Status:       models.ReservationActive,
		Price:        models.ReservationPrice(days, office.PricePerDay, office.MonthlyDiscount),
		WifiPassword: newWifiPassword(),
	}

	if err := s.store.CreateReservation(ctx, res); err != nil {
		return nil, err
	}
	res.Office = office

	return res, nil
}

// GetReservation loads a reservation visible to the given user: the guest
// or the office host.
func (s *ReservationService) GetReservation(ctx context.Context, userID, id int64) (*models.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	office, err := s.store.GetOffice(ctx, res.OfficeID)
	if err != nil {
		return nil, err
	}
	res.Office = office

	if res.UserID != userID && office.UserID != userID {
		return nil, database.ErrReservationNotFound
	}

	// The wifi password is for the guest only.
	if res.UserID != userID {
		res.WifiPassword = ""
	}

	return res, nil
}

// ListReservations returns reservations matching the filter with their
// offices attached. The caller scopes the filter to a guest or a host.
func (s *ReservationService) ListReservations(ctx context.Context, filter database.ReservationFilter) ([]*models.Reservation, error) {
	list, err := s.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, res := range list {
		office, err := s.store.GetOffice(ctx, res.OfficeID)
		if err != nil {
			if errors.Is(err, database.ErrOfficeNotFound) {
				continue
			}
			return nil, err
		}
		res.Office = office
		if filter.HostID != 0 {
			res.WifiPassword = ""
		}
	}

	return list, nil
}

// CancelReservation cancels a guest's own reservation while it is still
// active and has not started yet.
func (s *ReservationService) CancelReservation(ctx context.Context, userID, id int64) (*models.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	if res.UserID != userID {
		return nil, database.ErrReservationNotFound
	}
	if res.Status != models.ReservationActive || !models.Day(res.StartDate).After(models.Day(time.Now())) {
		return nil, ErrCancelForbidden
	}

	if err := s.store.UpdateReservationStatus(ctx, id, models.ReservationCancelled); err != nil {
		return nil, err
	}
	res.Status = models.ReservationCancelled

	office, err := s.store.GetOffice(ctx, res.OfficeID)
	if err == nil {
		res.Office = office
		s.publishReservationEvent(events.EventReservationCancelled, res, office)
	}
	s.enqueueLedgerStatus(ctx, res.ID, res.Status)

	return res, nil
}

// NotifyStartingToday publishes a reminder event for every reservation
// that begins today. The reminder worker calls this once a day.
func (s *ReservationService) NotifyStartingToday(ctx context.Context) (int, error) {
	list, err := s.store.ListReservationsStartingOn(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, res := range list {
		office, err := s.store.GetOffice(ctx, res.OfficeID)
		if err != nil {
			s.logger.Error().Err(err).Int64("reservation_id", res.ID).Msg("load office for reminder error")
			continue
		}
		s.publishReservationEvent(events.EventReservationStarting, res, office)
	}

	return len(list), nil
}

func (s *ReservationService) publishReservationEvent(eventType string, res *models.Reservation, office *models.Office) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: res.ID,
		UserID:        res.UserID,
		OfficeID:      office.ID,
		HostID:        office.UserID,
		OfficeTitle:   office.Title,
		StartDate:     res.StartDate,
		EndDate:       res.EndDate,
		Price:         res.Price,
		Status:        res.Status,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", res.ID).Msg("publish event error")
	}
}

func (s *ReservationService) enqueueLedgerAppend(ctx context.Context, res *models.Reservation) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.EnqueueAppend(ctx, res); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", res.ID).Msg("ledger enqueue error")
	}
}

func (s *ReservationService) enqueueLedgerStatus(ctx context.Context, id int64, status string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.EnqueueStatus(ctx, id, status); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", id).Msg("ledger enqueue error")
	}
}

func newWifiPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
