// Package querycache memoizes keyed read queries.
//
// Each key holds the most recent successful value. Concurrent fetches of the
// same key share one underlying call, a failed fetch keeps the previous value
// (stale-but-available), and a fetch superseded by Invalidate or a newer flight
// does not overwrite the entry when it finally lands. There is no TTL.
package querycache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a query, e.g. Key{"product", handle}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, ":")
}

// State is what consumers render: the last good value plus loading/error flags.
type State[T any] struct {
	Data      T
	HasData   bool
	IsLoading bool
	Err       error
	UpdatedAt time.Time
}

// Recorder receives cache outcome counters.
type Recorder interface {
	Hit(cache string)
	Miss(cache string)
	Failure(cache string)
	Superseded(cache string)
}

// QueryFunc performs the underlying read.
type QueryFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	state      State[T]
	stale      bool
	generation uint64
	flightGen  uint64
	watchers   map[uint64]chan State[T]
}

// Cache is safe for concurrent use.
type Cache[T any] struct {
	name     string
	mu       sync.Mutex
	entries  map[string]*entry[T]
	group    singleflight.Group
	nextSub  uint64
	recorder Recorder
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	name     string
	recorder Recorder
	now      func() time.Time
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func WithRecorder(rec Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func New[T any](opts ...Option) *Cache[T] {
	o := options{name: "default", now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Cache[T]{
		name:     o.name,
		entries:  make(map[string]*entry[T]),
		recorder: o.recorder,
		now:      o.now,
	}
}

// Fetch returns the cached value for key, or runs fn to load it.
//
// A cached value that is not stale is returned without calling fn. Otherwise
// callers that arrive while a flight for the current generation is running
// join it. The flight runs detached from the caller's cancellation so one
// impatient caller does not fail the others; each caller still stops waiting
// when its own ctx is done.
func (c *Cache[T]) Fetch(ctx context.Context, key Key, fn QueryFunc[T]) (State[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id := key.String()

	c.mu.Lock()
	e := c.entryLocked(id)
	if e.state.HasData && !e.stale {
		state := e.state
		c.mu.Unlock()
		c.record(func(r Recorder) { r.Hit(c.name) })
		return state, nil
	}
	gen := e.flightGen
	if gen == 0 || gen != e.generation {
		e.generation++
		gen = e.generation
		e.flightGen = gen
		e.state.IsLoading = true
		e.broadcastLocked()
	}
	c.mu.Unlock()
	c.record(func(r Recorder) { r.Miss(c.name) })

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%s#%d", id, gen), func() (any, error) {
		data, err := fn(flightCtx)
		return c.commit(id, gen, data, err), nil
	})

	select {
	case <-ctx.Done():
		return c.Peek(key), ctx.Err()
	case res := <-ch:
		state := res.Val.(State[T])
		return state, state.Err
	}
}

// Peek returns the current state for key without triggering a fetch.
func (c *Cache[T]) Peek(key Key) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		return e.state
	}
	return State[T]{}
}

// Invalidate marks key stale so the next Fetch re-queries. The last good value
// stays readable through Peek, and any flight already running for key is
// treated as superseded.
func (c *Cache[T]) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return
	}
	e.stale = true
	e.generation++
	e.state.IsLoading = false
	e.broadcastLocked()
}

// InvalidatePrefix invalidates every key that starts with prefix.
func (c *Cache[T]) InvalidatePrefix(prefix Key) {
	p := prefix.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if id == p || strings.HasPrefix(id, p+":") {
			e.stale = true
			e.generation++
			e.state.IsLoading = false
			e.broadcastLocked()
		}
	}
}

// Watch streams state changes for key. The channel holds only the latest
// state; a slow reader skips intermediate ones. The returned func stops the
// stream and closes the channel.
func (c *Cache[T]) Watch(key Key) (<-chan State[T], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key.String())
	if e.watchers == nil {
		e.watchers = make(map[uint64]chan State[T])
	}
	c.nextSub++
	id := c.nextSub
	ch := make(chan State[T], 1)
	ch <- e.state
	e.watchers[id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if w, ok := e.watchers[id]; ok {
				delete(e.watchers, id)
				close(w)
			}
		})
	}
	return ch, stop
}

func (e *entry[T]) broadcastLocked() {
	for _, ch := range e.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- e.state
	}
}

func (c *Cache[T]) entryLocked(id string) *entry[T] {
	e, ok := c.entries[id]
	if !ok {
		e = &entry[T]{}
		c.entries[id] = e
	}
	return e
}

// commit stores a flight result unless a newer generation replaced it.
func (c *Cache[T]) commit(id string, gen uint64, data T, err error) State[T] {
	c.mu.Lock()
	e := c.entryLocked(id)
	if e.flightGen == gen {
		e.flightGen = 0
	}
	if e.generation != gen {
		c.mu.Unlock()
		c.record(func(r Recorder) { r.Superseded(c.name) })
		return State[T]{Data: data, HasData: err == nil, Err: err}
	}

	e.state.IsLoading = false
	if err != nil {
		e.state.Err = err
	} else {
		e.state = State[T]{Data: data, HasData: true, UpdatedAt: c.now()}
		e.stale = false
	}
	e.broadcastLocked()
	state := e.state
	c.mu.Unlock()

	if err != nil {
		c.record(func(r Recorder) { r.Failure(c.name) })
	}
	return state
}

func (c *Cache[T]) record(fn func(Recorder)) {
	if c.recorder != nil {
		fn(c.recorder)
	}
}
