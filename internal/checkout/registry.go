package checkout

import (
	"fmt"
	"sync"

	"github.com/amaiabotanic/storefront/internal/cart"
)

// Registry keeps one Orchestrator per cart session so the in-progress guard
// spans requests. Base supplies everything except Cart and Notifier. Every
// orchestrator draws order ids from one generator, so ids stay unique across
// sessions.
type Registry struct {
	base        Params
	notifierFor func(sessionID string) Notifier

	mu    sync.Mutex
	byKey map[string]*Orchestrator
}

func NewRegistry(base Params, notifierFor func(sessionID string) Notifier) *Registry {
	if base.ids == nil {
		base.ids = newOrderIDs(base.Clock)
	}
	return &Registry{
		base:        base,
		notifierFor: notifierFor,
		byKey:       make(map[string]*Orchestrator),
	}
}

// For returns the orchestrator bound to store. A session whose store was
// replaced gets a fresh orchestrator.
func (r *Registry) For(sessionID string, store *cart.Store) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.byKey[sessionID]; ok && o.cart == store {
		return o, nil
	}

	params := r.base
	params.Cart = store
	if r.notifierFor != nil {
		params.Notifier = r.notifierFor(sessionID)
	}
	o, err := NewOrchestrator(params)
	if err != nil {
		return nil, err
	}
	r.byKey[sessionID] = o
	return o, nil
}

// Forget drops the session's orchestrator.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.byKey, sessionID)
	r.mu.Unlock()
}
