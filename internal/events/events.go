package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventReservationCreated    = "reservation_created"
	EventReservationCancelled  = "reservation_cancelled"
	EventReservationStarting   = "reservation_starting"
	EventOfficePendingApproval = "office_pending_approval"
)

// ReservationEventPayload is the reservation snapshot carried by
// reservation events.
type ReservationEventPayload struct {
	ReservationID int64     `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	OfficeID      int64     `json:"office_id"`
	HostID        int64     `json:"host_id"`
	OfficeTitle   string    `json:"office_title"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Price         int64     `json:"price"`
	Status        string    `json:"status"`
}

// OfficeEventPayload describes an office awaiting admin review.
type OfficeEventPayload struct {
	OfficeID int64  `json:"office_id"`
	HostID   int64  `json:"host_id"`
	Title    string `json:"title"`
	Reason   string `json:"reason,omitempty"` // created, updated
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
