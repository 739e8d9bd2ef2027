package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/AltairaLabs/portalops/internal/types"
)

// EventType names a task or session lifecycle event
type EventType string

const (
	// EventTaskStatusChanged is published after every applied status update
	EventTaskStatusChanged EventType = "task.status_changed"
	// EventSessionRequested is published when a new session is created
	EventSessionRequested EventType = "session.requested"
	// EventSessionAttached is published when a worker attaches a viewer
	EventSessionAttached EventType = "session.attached"
	// EventSessionExpired is published when a session is healed to EXPIRED
	EventSessionExpired EventType = "session.expired"
	// EventSessionClosed is published when a session is closed
	EventSessionClosed EventType = "session.closed"
)

// ErrSubscriberFull is returned by ChannelEventSender when its buffer is full
var ErrSubscriberFull = errors.New("subscriber buffer full")

// Event is what observers (admin and client dashboards) receive.
// AssigneeID is the agent the task was assigned to when the event was
// published; it is empty when the task could not be resolved.
type Event struct {
	Type       EventType        `json:"type"`
	TaskID     string           `json:"taskId"`
	AgentID    string           `json:"agentId,omitempty"`
	AssigneeID string           `json:"assigneeId,omitempty"`
	From       types.TaskStatus `json:"from,omitempty"`
	Task       *types.Task      `json:"task,omitempty"`
	Session    *types.Session   `json:"session,omitempty"`
	At         time.Time        `json:"at"`
}

// EventPublisher accepts lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventSender delivers events to one subscriber
type EventSender interface {
	SendEvent(event Event) error
}

// EventHub fans events out to registered subscribers. Publishing never
// blocks on a slow subscriber.
type EventHub struct {
	subscribers map[string]EventSender
	mu          sync.RWMutex
	logger      *slog.Logger
}

// NewEventHub creates an event hub with no subscribers
func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		subscribers: make(map[string]EventSender),
		logger:      logger,
	}
}

// Subscribe registers sender under id, replacing any previous sender
func (h *EventHub) Subscribe(id string, sender EventSender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = sender
}

// Unsubscribe removes a subscriber
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
}

// SubscriberCount returns the number of registered subscribers
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish delivers event to every subscriber. Delivery failures are logged
// and do not affect other subscribers.
func (h *EventHub) Publish(ctx context.Context, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sender := range h.subscribers {
		if err := sender.SendEvent(event); err != nil {
			h.logger.WarnContext(ctx, "event delivery failed",
				"subscriber", id,
				"event", event.Type,
				"task_id", event.TaskID,
				"error", err)
		}
	}
}

// ChannelEventSender implements EventSender using a buffered channel.
// Events are dropped with ErrSubscriberFull rather than blocking.
type ChannelEventSender struct {
	ch chan<- Event
}

// NewChannelEventSender creates a sender that writes to ch
func NewChannelEventSender(ch chan<- Event) *ChannelEventSender {
	return &ChannelEventSender{ch: ch}
}

// SendEvent implements EventSender
func (s *ChannelEventSender) SendEvent(event Event) error {
	select {
	case s.ch <- event:
		return nil
	default:
		return ErrSubscriberFull
	}
}

// FilteredEventSender forwards only the events allow accepts
type FilteredEventSender struct {
	next  EventSender
	allow func(Event) bool
}

// NewFilteredEventSender wraps next so that events rejected by allow are
// skipped without error
func NewFilteredEventSender(next EventSender, allow func(Event) bool) *FilteredEventSender {
	return &FilteredEventSender{next: next, allow: allow}
}

// SendEvent implements EventSender
func (s *FilteredEventSender) SendEvent(event Event) error {
	if !s.allow(event) {
		return nil
	}
	return s.next.SendEvent(event)
}

// AssignedTo accepts the events of tasks assigned to agentID
func AssignedTo(agentID string) func(Event) bool {
	return func(event Event) bool {
		return agentID != "" && event.AssigneeID == agentID
	}
}
