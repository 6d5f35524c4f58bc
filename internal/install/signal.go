// Package install captures the platform's deferred install offer and
// exposes the accept and dismiss actions behind the install banner.
package install

import (
	"context"
	"sync"

	"github.com/sokoniarena/sokoni/internal/model"
)

// Intent is a one-shot deferred install offer.
type Intent interface {
	// PreventDefault suppresses the platform's own install UI.
	PreventDefault()
	// Prompt shows the native install dialog and waits for the answer.
	Prompt(ctx context.Context) (model.InstallOutcome, error)
}

// Subscription is a handle to a registered signal handler.
type Subscription interface {
	Cancel()
}

// Signal is the platform's "install intent available" event source.
type Signal interface {
	Subscribe(fn func(Intent)) Subscription
}

// SubscriptionFunc adapts a function into a Subscription.
type SubscriptionFunc func()

// Cancel calls f.
func (f SubscriptionFunc) Cancel() { f() }

// LocalSignal is an in-process Signal. Intents fired while no handler is
// subscribed are lost, like the platform event.
type LocalSignal struct {
	mu       sync.Mutex
	handlers map[int]func(Intent)
	next     int
}

// NewLocalSignal creates an empty signal.
func NewLocalSignal() *LocalSignal {
	return &LocalSignal{handlers: make(map[int]func(Intent))}
}

// Subscribe registers fn. Cancel is safe to call more than once.
func (s *LocalSignal) Subscribe(fn func(Intent)) Subscription {
	s.mu.Lock()
	id := s.next
	s.next++
	s.handlers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	})
}

// Fire delivers intent to every subscriber and returns how many received it.
func (s *LocalSignal) Fire(intent Intent) int {
	s.mu.Lock()
	handlers := make([]func(Intent), 0, len(s.handlers))
	for _, fn := range s.handlers {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(intent)
	}
	return len(handlers)
}

// Subscribers returns the number of registered handlers.
func (s *LocalSignal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}
