package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventSessionLogin    = "session_login"
	EventSessionLogout   = "session_logout"
	EventSessionExpired  = "session_expired"
	EventBookingCreated  = "booking_created"
	EventBookingCanceled = "booking_canceled"
	EventRoomDeleted     = "room_deleted"
	EventUserDeleted     = "user_deleted"
)

// SessionEventPayload describes a session lifecycle change.
type SessionEventPayload struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// BookingEventPayload is the booking snapshot handed to subscribers.
type BookingEventPayload struct {
	BookingID        int64   `json:"booking_id,omitempty"`
	RoomID           int64   `json:"room_id,omitempty"`
	UserID           int64   `json:"user_id,omitempty"`
	ConfirmationCode string  `json:"confirmation_code,omitempty"`
	CheckIn          string  `json:"check_in,omitempty"`
	CheckOut         string  `json:"check_out,omitempty"`
	Amount           float64 `json:"amount,omitempty"`
	ChangedByID      int64   `json:"changed_by_id,omitempty"`
}

// AdminEventPayload identifies the catalog or user record an admin removed.
type AdminEventPayload struct {
	TargetID    int64 `json:"target_id"`
	ChangedByID int64 `json:"changed_by_id,omitempty"`
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs every subscriber of the event type synchronously and joins their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes it. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
