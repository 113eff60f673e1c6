package checkout

import (
	"fmt"
	"sync"
	"time"
)

// orderIDs issues "AM" + the last six digits of a millisecond clock. The
// underlying millisecond value strictly increases per generator.
type orderIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func newOrderIDs(now func() time.Time) *orderIDs {
	if now == nil {
		now = time.Now
	}
	return &orderIDs{now: now}
}

func (g *orderIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("AM%06d", ms%1_000_000)
}
