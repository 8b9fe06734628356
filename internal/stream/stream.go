// Package stream fan-outs billing events to SSE subscribers.
package stream

import (
	"context"
	"sync"
	"time"
)

// EventType enumerates the billing occurrences pushed to clients.
type EventType string

const (
	EventMethodAdded          EventType = "payment_method.added"
	EventMethodRemoved        EventType = "payment_method.removed"
	EventMethodDefaultChanged EventType = "payment_method.default_changed"
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventCheckoutCompleted    EventType = "checkout.completed"
)

// Event is one billing occurrence for a user. Payload carries the affected
// record, already shaped for JSON.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	userID string
	ch     chan Event
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for a single user's events and returns the
// channel which will receive them. The channel is closed when the provided
// context ends.
func (s *Stream) Subscribe(ctx context.Context, userID string) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{userID: userID, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to every subscriber watching its user.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.userID != evt.UserID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
