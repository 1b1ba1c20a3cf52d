package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventRequestApproved     = "request_approved"
	EventRequestRejected     = "request_rejected"
	EventDashboardReloaded   = "dashboard_reloaded"
	EventDashboardLoadFailed = "dashboard_load_failed"
	EventNavigationRequested = "navigation_requested"
)

// DecisionEventPayload describes an operator decision on a pending request.
type DecisionEventPayload struct {
	SessionID string    `json:"session_id"`
	Operator  string    `json:"operator,omitempty"`
	Kind      string    `json:"kind"`
	RequestID int64     `json:"request_id"`
	ActorName string    `json:"actor_name"`
	ItemLabel string    `json:"item_label"`
	Detail    string    `json:"detail,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// LoadEventPayload summarizes one dashboard reload.
type LoadEventPayload struct {
	SessionID    string `json:"session_id"`
	PendingTotal int    `json:"pending_total"`
	Error        string `json:"error,omitempty"`
}

// NavigationPayload asks the host shell to open a destination.
type NavigationPayload struct {
	SessionID   string `json:"session_id"`
	Destination string `json:"destination"`
}

type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into out.
func (e *Event) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// WithLogger makes the bus log handler failures.
func (b *EventBus) WithLogger(logger *zerolog.Logger) *EventBus {
	b.logger = logger
	return b
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously, in
// subscription order.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
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
