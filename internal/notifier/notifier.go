package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deskhub/internal/domain"
	"deskhub/internal/events"
	"deskhub/internal/metrics"
	"deskhub/internal/models"

	"github.com/rs/zerolog"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher listens on the event bus and fans notifications out to the
// configured channels. Delivery is best effort: failures are logged and
// counted, never propagated back to the publisher.
type Dispatcher struct {
	store    domain.Store
	channels []domain.Notifier
	// adminChatID, when set, receives approval notifications instead of
	// the admin users' personal chats.
	adminChatID int64
	logger      *zerolog.Logger
}

func NewDispatcher(store domain.Store, channels []domain.Notifier, adminChatID int64, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		channels:    channels,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// Register subscribes the dispatcher to the events it handles.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventReservationCreated, d.onReservationCreated)
	bus.Subscribe(events.EventReservationCancelled, d.onReservationCancelled)
	bus.Subscribe(events.EventReservationStarting, d.onReservationStarting)
	bus.Subscribe(events.EventOfficePendingApproval, d.onOfficePendingApproval)
}

func (d *Dispatcher) onReservationCreated(event *events.Event) error {
	payload, err := decodeReservation(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload error")
		return nil
	}

	dates := formatRange(payload.StartDate, payload.EndDate)
	d.notifyUser(payload.UserID,
		fmt.Sprintf("Your reservation at %q (%s) is confirmed.", payload.OfficeTitle, dates))
	d.notifyUser(payload.HostID,
		fmt.Sprintf("Your office %q was reserved for %s.", payload.OfficeTitle, dates))
	return nil
}

func (d *Dispatcher) onReservationCancelled(event *events.Event) error {
	payload, err := decodeReservation(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload error")
		return nil
	}

	d.notifyUser(payload.HostID,
		fmt.Sprintf("A reservation at %q (%s) was cancelled.",
			payload.OfficeTitle, formatRange(payload.StartDate, payload.EndDate)))
	return nil
}

func (d *Dispatcher) onReservationStarting(event *events.Event) error {
	payload, err := decodeReservation(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload error")
		return nil
	}

	d.notifyUser(payload.UserID,
		fmt.Sprintf("Your reservation at %q starts today.", payload.OfficeTitle))
	d.notifyUser(payload.HostID,
		fmt.Sprintf("A reservation at your office %q starts today.", payload.OfficeTitle))
	return nil
}

func (d *Dispatcher) onOfficePendingApproval(event *events.Event) error {
	var payload events.OfficeEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		d.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload error")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	text := fmt.Sprintf("Office %q (#%d) is awaiting approval.", payload.Title, payload.OfficeID)

	if d.adminChatID != 0 {
		d.deliver(ctx, &models.User{Name: "admins", ChatID: d.adminChatID}, text)
		return nil
	}

	admins, err := d.store.GetAdmins(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("load admins error")
		return nil
	}
	for _, admin := range admins {
		d.deliver(ctx, admin, text)
	}
	return nil
}

func (d *Dispatcher) notifyUser(userID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	user, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", userID).Msg("load notification recipient error")
		return
	}
	d.deliver(ctx, user, text)
}

func (d *Dispatcher) deliver(ctx context.Context, user *models.User, text string) {
	for _, channel := range d.channels {
		if err := channel.Notify(ctx, user, text); err != nil {
			metrics.IncNotifyError(channel.Name())
			d.logger.Warn().Err(err).
				Str("channel", channel.Name()).
				Int64("user_id", user.ID).
				Msg("notification delivery error")
		}
	}
}

func decodeReservation(event *events.Event) (*events.ReservationEventPayload, error) {
	var payload events.ReservationEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func formatRange(start, end time.Time) string {
	return start.Format(models.DateFormat) + " to " + end.Format(models.DateFormat)
}
