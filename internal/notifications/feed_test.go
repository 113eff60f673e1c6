package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/amaiabotanic/storefront/pkg/enums"
)

func TestFeedDrainReturnsOldestFirst(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	feed := NewFeed(WithClock(func() time.Time { return now }))
	feed.Notify(context.Background(), AddedToCart("Castor Oil"))
	feed.Notify(context.Background(), OrderConfirmed("AM123456"))

	got := feed.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(got))
	}
	if got[0].Title != "Added to cart" || got[1].Title != "Order Confirmed!" {
		t.Fatalf("unexpected order: %q, %q", got[0].Title, got[1].Title)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Fatalf("expected distinct ids, got %q and %q", got[0].ID, got[1].ID)
	}
	if !got[0].CreatedAt.Equal(now) {
		t.Fatalf("expected clock timestamp, got %s", got[0].CreatedAt)
	}
	if again := feed.Drain(); len(again) != 0 {
		t.Fatalf("expected empty feed after drain, got %d", len(again))
	}
}

func TestFeedDropsOldestBeyondLimit(t *testing.T) {
	t.Parallel()

	feed := NewFeed(WithLimit(2))
	for _, title := range []string{"one", "two", "three"} {
		feed.Notify(context.Background(), Notice{Title: title})
	}
	got := feed.Drain()
	if len(got) != 2 || got[0].Title != "two" || got[1].Title != "three" {
		t.Fatalf("unexpected feed contents %+v", got)
	}
	if got[0].Variant != enums.NotificationVariantDefault {
		t.Fatalf("expected default variant, got %q", got[0].Variant)
	}
}

func TestNoticeCopy(t *testing.T) {
	t.Parallel()

	added := AddedToCart("Argan Oil")
	if added.Description != "Argan Oil added to your ritual collection" {
		t.Fatalf("unexpected description %q", added.Description)
	}
	confirmed := OrderConfirmed("AM000042")
	if !strings.Contains(confirmed.Description, "Order #AM000042.") {
		t.Fatalf("order id missing from %q", confirmed.Description)
	}
	failed := PaymentFailed()
	if failed.Variant != enums.NotificationVariantDestructive {
		t.Fatalf("expected destructive variant, got %q", failed.Variant)
	}
}

func TestFeedsPerSession(t *testing.T) {
	t.Parallel()

	feeds := NewFeeds(WithLimit(5))
	feeds.For("a").Notify(context.Background(), PaymentFailed())
	if feeds.For("b").Len() != 0 {
		t.Fatal("sessions must not share feeds")
	}
	if feeds.For(" a ") != feeds.For("a") {
		t.Fatal("expected trimmed session ids to map to the same feed")
	}
	feeds.Remove("a")
	if feeds.For("a").Len() != 0 {
		t.Fatal("expected a fresh feed after Remove")
	}
}

func TestFeedsDrainDoesNotCreateFeeds(t *testing.T) {
	t.Parallel()

	feeds := NewFeeds()
	if got := feeds.Drain("ghost"); len(got) != 0 {
		t.Fatalf("expected no notices, got %+v", got)
	}
	if feeds.Len() != 0 {
		t.Fatalf("drain must not allocate a feed, have %d", feeds.Len())
	}

	feeds.For("a").Notify(context.Background(), AddedToCart("Argan Oil"))
	if got := feeds.Drain("a"); len(got) != 1 {
		t.Fatalf("expected one notice, got %+v", got)
	}
	if feeds.Len() != 1 {
		t.Fatalf("expected one feed, got %d", feeds.Len())
	}
}
