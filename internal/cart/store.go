package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	// DefaultStorageKey is the key a store persists under when none is given.
	DefaultStorageKey = "amaia-cart"

	// MaxQuantity caps a single line. Larger requests are clamped.
	MaxQuantity = 999
)

// Listener receives the new line items after every change.
type Listener func(items []LineItem)

type subscription struct {
	id uint64
	fn Listener
}

// Store owns one cart. Mutations are serialized; each one publishes a new
// slice, persists it, and then notifies subscribers in subscription order.
// Listeners run on the mutating goroutine and must not mutate the store.
type Store struct {
	mu      sync.Mutex
	items   atomic.Pointer[[]LineItem]
	storage Storage
	key     string
	logg    *logger.Logger
	onFail  func(error)
	closed  bool

	persistErr atomic.Pointer[PersistenceError]

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64
}

type StoreOption func(*Store)

func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(logg *logger.Logger) StoreOption {
	return func(s *Store) {
		s.logg = logg
	}
}

// WithPersistenceFailureHook is called once when the store drops to memory-only.
func WithPersistenceFailureHook(fn func(error)) StoreOption {
	return func(s *Store) {
		s.onFail = fn
	}
}

// NewStore rehydrates a cart from storage. Absent, malformed or invalid data
// yields an empty cart. A nil storage keeps the cart in memory only.
func NewStore(ctx context.Context, storage Storage, opts ...StoreOption) *Store {
	s := &Store{storage: storage, key: DefaultStorageKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	items := s.rehydrate(ctx)
	s.items.Store(&items)
	return s
}

func (s *Store) rehydrate(ctx context.Context) []LineItem {
	if s.storage == nil {
		return []LineItem{}
	}
	logCtx := s.logg.WithField(ctx, "storage_key", s.key)

	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "cart load failed, starting empty")
		return []LineItem{}
	}
	if len(data) == 0 {
		return []LineItem{}
	}
	items, err := DecodeSnapshot(data)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "discarding stored cart")
		return []LineItem{}
	}
	return items
}

func (s *Store) current() []LineItem {
	if p := s.items.Load(); p != nil {
		return *p
	}
	return nil
}

// AddItem merges item into the line with the same variant, or appends it.
// Quantities below one are treated as one; merged lines stop at MaxQuantity.
func (s *Store) AddItem(ctx context.Context, item LineItem) []LineItem {
	item.Quantity = clampQuantity(item.Quantity)
	if err := item.validate(); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "rejected cart item")
		return s.Items()
	}
	item = item.Clone()

	return s.mutate(ctx, func(items []LineItem) ([]LineItem, bool) {
		next := make([]LineItem, len(items), len(items)+1)
		copy(next, items)
		if i := indexOf(next, item.VariantID); i >= 0 {
			merged := next[i]
			if merged.Quantity >= MaxQuantity {
				return items, false
			}
			merged.Quantity = clampQuantity(merged.Quantity + item.Quantity)
			next[i] = merged
			return next, true
		}
		return append(next, item), true
	})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
// Unknown variants are ignored and quantities above MaxQuantity are clamped.
func (s *Store) UpdateQuantity(ctx context.Context, variantID string, quantity int) []LineItem {
	if quantity <= 0 {
		return s.RemoveItem(ctx, variantID)
	}
	quantity = clampQuantity(quantity)
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, variantID)
		if i < 0 || items[i].Quantity == quantity {
			return items, false
		}
		next := make([]LineItem, len(items))
		copy(next, items)
		updated := next[i]
		updated.Quantity = quantity
		next[i] = updated
		return next, true
	})
}

// RemoveItem drops the line for variantID. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, variantID string) []LineItem {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, variantID)
		if i < 0 {
			return items, false
		}
		next := make([]LineItem, 0, len(items)-1)
		next = append(next, items[:i]...)
		next = append(next, items[i+1:]...)
		return next, true
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) []LineItem {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, bool) {
		return []LineItem{}, len(items) > 0
	})
}

func clampQuantity(q int) int {
	switch {
	case q < 1:
		return 1
	case q > MaxQuantity:
		return MaxQuantity
	}
	return q
}

func (s *Store) mutate(ctx context.Context, fn func([]LineItem) ([]LineItem, bool)) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.current()
	if s.closed {
		return cloneItems(current)
	}
	next, changed := fn(current)
	if !changed {
		return cloneItems(current)
	}

	s.items.Store(&next)
	s.persist(ctx, next)
	s.notify(next)
	return cloneItems(next)
}

func (s *Store) persist(ctx context.Context, items []LineItem) {
	if s.storage == nil || s.persistErr.Load() != nil {
		return
	}
	data, err := EncodeSnapshot(items)
	if err == nil {
		err = s.storage.Save(context.WithoutCancel(ctx), s.key, data)
	}
	if err == nil {
		return
	}

	perr := &PersistenceError{Op: "save", Key: s.key, Err: err}
	s.persistErr.Store(perr)
	s.logg.Error(s.logg.WithField(ctx, "storage_key", s.key), "cart persistence failed, continuing in memory", perr)
	if s.onFail != nil {
		s.onFail(perr)
	}
}

func (s *Store) notify(items []LineItem) {
	s.subsMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(cloneItems(items))
	}
}

// Items returns a copy of the current lines.
func (s *Store) Items() []LineItem {
	return cloneItems(s.current())
}

func (s *Store) TotalItems() int {
	return TotalItems(s.current())
}

func (s *Store) TotalPrice() decimal.Decimal {
	return TotalPrice(s.current())
}

// Subscribe registers fn for change notifications. The returned func
// unsubscribes and is safe to call more than once.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// PersistenceErr returns the failure that switched the store to memory-only,
// or nil while persistence is healthy.
func (s *Store) PersistenceErr() error {
	if perr := s.persistErr.Load(); perr != nil {
		return perr
	}
	return nil
}

// Key returns the storage key the cart persists under.
func (s *Store) Key() string {
	return s.key
}

// Close drops subscribers and freezes the cart. Storage is not closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	s.closed = true

	s.subsMu.Lock()
	s.subs = nil
	s.subsMu.Unlock()
	return nil
}

var errStoreClosed = errors.New("cart store already closed")
