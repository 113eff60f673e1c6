package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amaiabotanic/storefront/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

var (
	ErrSessionRequired = errors.New("cart session id is required")
	ErrSessionsClosed  = errors.New("cart sessions closed")
)

// Sessions owns one Store per client session. Stores are created lazily and
// rehydrated from storage on first use. Ending a session, directly or through
// EvictIdle, runs the registered end hooks with its id.
type Sessions struct {
	storage   Storage
	keyPrefix string
	storeOpts []StoreOption
	logg      *logger.Logger
	onEnd     []func(sessionID string)
	now       func() time.Time

	mu     sync.RWMutex
	stores map[string]*session
	closed bool
	group  singleflight.Group
}

type session struct {
	store    *Store
	lastSeen atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

type SessionsOption func(*Sessions)

// WithKeyPrefix sets the storage key prefix; the session id is appended.
func WithKeyPrefix(prefix string) SessionsOption {
	return func(s *Sessions) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.keyPrefix = p
		}
	}
}

// WithStoreOptions applies opts to every store the registry creates.
func WithStoreOptions(opts ...StoreOption) SessionsOption {
	return func(s *Sessions) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

func WithSessionsLogger(logg *logger.Logger) SessionsOption {
	return func(s *Sessions) {
		s.logg = logg
	}
}

// WithEndHook registers fn to run after a session is ended or evicted.
func WithEndHook(fn func(sessionID string)) SessionsOption {
	return func(s *Sessions) {
		if fn != nil {
			s.onEnd = append(s.onEnd, fn)
		}
	}
}

func WithSessionsClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessions(storage Storage, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		storage:   storage,
		keyPrefix: DefaultStorageKey,
		now:       time.Now,
		stores:    make(map[string]*session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// StorageKey is the key the session's cart persists under.
func (s *Sessions) StorageKey(sessionID string) string {
	return s.keyPrefix + ":" + sessionID
}

// Get returns the session's store, creating and rehydrating it on first use.
// Every call counts as activity for EvictIdle.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if store, ok, err := s.lookup(sessionID); ok || err != nil {
		return store, err
	}

	v, err, _ := s.group.Do(sessionID, func() (any, error) {
		if store, ok, err := s.lookup(sessionID); ok || err != nil {
			return store, err
		}
		opts := append([]StoreOption{WithLogger(s.logg)}, s.storeOpts...)
		opts = append(opts, WithStorageKey(s.StorageKey(sessionID)))
		store := NewStore(s.logg.WithSessionID(context.WithoutCancel(ctx), sessionID), s.storage, opts...)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			_ = store.Close()
			return nil, ErrSessionsClosed
		}
		entry := &session{store: store}
		entry.touch(s.now())
		s.stores[sessionID] = entry
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (s *Sessions) lookup(sessionID string) (*Store, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrSessionsClosed
	}
	entry, ok := s.stores[sessionID]
	if !ok {
		return nil, false, nil
	}
	entry.touch(s.now())
	return entry.store, true, nil
}

// End tears down the session's in-memory store and runs the end hooks. The
// persisted cart is kept.
func (s *Sessions) End(sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrSessionRequired
	}
	s.mu.Lock()
	entry, ok := s.stores[sessionID]
	delete(s.stores, sessionID)
	s.mu.Unlock()

	var err error
	if ok {
		err = entry.store.Close()
	}
	s.ended(sessionID)
	return err
}

// EvictIdle ends every session not used since cutoff and returns their ids.
func (s *Sessions) EvictIdle(cutoff time.Time) ([]string, error) {
	limit := cutoff.UnixNano()
	var (
		ids    []string
		stores []*Store
	)
	s.mu.Lock()
	for id, entry := range s.stores {
		if entry.lastSeen.Load() < limit {
			ids = append(ids, id)
			stores = append(stores, entry.store)
			delete(s.stores, id)
		}
	}
	s.mu.Unlock()

	var errs error
	for i, store := range stores {
		errs = multierr.Append(errs, store.Close())
		s.ended(ids[i])
	}
	return ids, errs
}

func (s *Sessions) ended(sessionID string) {
	for _, fn := range s.onEnd {
		fn(sessionID)
	}
}

// Len reports how many sessions are active.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stores)
}

// Close closes every store and rejects further Get calls.
func (s *Sessions) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stores := s.stores
	s.stores = make(map[string]*session)
	s.mu.Unlock()

	var errs error
	for _, entry := range stores {
		errs = multierr.Append(errs, entry.store.Close())
	}
	return errs
}
