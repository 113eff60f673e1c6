package notifications

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amaiabotanic/storefront/pkg/enums"
	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/google/uuid"
)

const defaultFeedLimit = 20

// Feed is a bounded, per-session list of notices. When full, the oldest
// notice is dropped.
type Feed struct {
	mu    sync.Mutex
	items []Notice
	limit int
	logg  *logger.Logger
	now   func() time.Time
	newID func() string
}

type FeedOption func(*Feed)

func WithLimit(limit int) FeedOption {
	return func(f *Feed) {
		if limit > 0 {
			f.limit = limit
		}
	}
}

func WithLogger(logg *logger.Logger) FeedOption {
	return func(f *Feed) {
		f.logg = logg
	}
}

func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFeed(opts ...FeedOption) *Feed {
	f := &Feed{
		limit: defaultFeedLimit,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Notify records n, filling in ID, timestamp and variant when missing.
func (f *Feed) Notify(ctx context.Context, n Notice) {
	if n.ID == "" {
		n.ID = f.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = f.now().UTC()
	}
	if !n.Variant.IsValid() {
		n.Variant = enums.NotificationVariantDefault
	}

	f.mu.Lock()
	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notice(nil), f.items[over:]...)
	}
	f.mu.Unlock()

	f.logg.Info(f.logg.WithFields(ctx, map[string]any{
		"notice_title":   n.Title,
		"notice_variant": n.Variant.String(),
	}), "notice published")
}

// Drain returns pending notices oldest first and empties the feed.
func (f *Feed) Drain() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Feeds maps session ids to their feed.
type Feeds struct {
	mu    sync.Mutex
	feeds map[string]*Feed
	opts  []FeedOption
}

func NewFeeds(opts ...FeedOption) *Feeds {
	return &Feeds{feeds: make(map[string]*Feed), opts: opts}
}

// For returns the session's feed, creating it on first use.
func (s *Feeds) For(sessionID string) *Feed {
	sessionID = strings.TrimSpace(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[sessionID]
	if !ok {
		feed = NewFeed(s.opts...)
		s.feeds[sessionID] = feed
	}
	return feed
}

// Drain empties the session's feed without creating one.
func (s *Feeds) Drain(sessionID string) []Notice {
	s.mu.Lock()
	feed, ok := s.feeds[strings.TrimSpace(sessionID)]
	s.mu.Unlock()
	if !ok {
		return []Notice{}
	}
	return feed.Drain()
}

// Len reports how many sessions hold a feed.
func (s *Feeds) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feeds)
}

func (s *Feeds) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.feeds, strings.TrimSpace(sessionID))
	s.mu.Unlock()
}
