package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

// Registry hands out one Dispatcher per request id. A dispatcher lives only
// while a send through it is running.
type Registry struct {
	transport Transport
	observer  Observer
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*registryEntry
}

type registryEntry struct {
	dispatcher *Dispatcher
	users      int
}

func NewRegistry(transport Transport, observer Observer, logger *slog.Logger) *Registry {
	return &Registry{
		transport: transport,
		observer:  observer,
		logger:    logger,
		entries:   make(map[uuid.UUID]*registryEntry),
	}
}

// acquire returns the request's dispatcher, creating it if needed, and
// holds it in the registry until release is called.
func (r *Registry) acquire(requestID uuid.UUID) *Dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[requestID]
	if !ok {
		e = &registryEntry{dispatcher: NewDispatcher(requestID, r.transport, r.observer, r.logger)}
		r.entries[requestID] = e
	}
	e.users++
	return e.dispatcher
}

func (r *Registry) release(requestID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[requestID]
	if !ok {
		return
	}
	e.users--
	if e.users <= 0 {
		delete(r.entries, requestID)
	}
}

// Len reports how many requests currently hold a dispatcher.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Cancel cancels the in-flight send of a request, if there is one.
func (r *Registry) Cancel(requestID uuid.UUID) bool {
	r.mu.Lock()
	e, ok := r.entries[requestID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return e.dispatcher.Cancel()
}

// Send issues fields through the request's dispatcher.
func (r *Registry) Send(ctx context.Context, requestID uuid.UUID, fields models.RequestFields, opts SendOptions) (Outcome, error) {
	d := r.acquire(requestID)
	defer r.release(requestID)
	return d.Send(ctx, fields, opts)
}
