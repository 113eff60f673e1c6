package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockFixture(t *testing.T) {
	t.Parallel()

	products := MockProducts()
	if len(products) != 6 {
		t.Fatalf("expected 6 products, got %d", len(products))
	}
	wantPrices := map[string]string{
		"castor-oil":       "24.99",
		"argan-oil":        "32.99",
		"jojoba-oil":       "28.99",
		"rosehip-oil":      "35.99",
		"coconut-oil":      "22.99",
		"sweet-almond-oil": "26.99",
	}
	for _, p := range products {
		want, ok := wantPrices[p.Handle]
		if !ok {
			t.Fatalf("unexpected handle %q", p.Handle)
		}
		if len(p.Variants) != 1 {
			t.Fatalf("%s: expected one variant, got %d", p.Handle, len(p.Variants))
		}
		v := p.Variants[0]
		if v.Price.Amount != want || v.Price.CurrencyCode != "EUR" || v.Title != "50ml" {
			t.Fatalf("%s: unexpected variant %+v", p.Handle, v)
		}
		if err := v.Price.Validate(); err != nil {
			t.Fatalf("%s: invalid price: %v", p.Handle, err)
		}
		if p.ID != "gid://shopify/Product/"+p.Handle {
			t.Fatalf("unexpected product id %q", p.ID)
		}
	}
}

func TestMockClientCounts(t *testing.T) {
	t.Parallel()

	client := NewMockClient()
	tests := []struct {
		count int
		want  int
	}{
		{count: 3, want: 3},
		{count: 0, want: 6},
		{count: -1, want: 6},
		{count: 20, want: 6},
	}
	for _, tt := range tests {
		got, err := client.FetchProducts(context.Background(), tt.count)
		if err != nil {
			t.Fatalf("count %d: unexpected error %v", tt.count, err)
		}
		if len(got) != tt.want {
			t.Fatalf("count %d: expected %d products, got %d", tt.count, tt.want, len(got))
		}
	}
}

func TestMockClientByHandle(t *testing.T) {
	t.Parallel()

	client := NewMockClient()
	p, err := client.FetchProductByHandle(context.Background(), "rosehip-oil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "ROSEHIP OIL" {
		t.Fatalf("unexpected product %+v", p)
	}

	p.Title = "mutated"
	again, _ := client.FetchProductByHandle(context.Background(), "rosehip-oil")
	if again.Title != "ROSEHIP OIL" {
		t.Fatal("fixture mutated through returned product")
	}

	if _, err := client.FetchProductByHandle(context.Background(), "lavender-oil"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMockClientLatencyHonoursContext(t *testing.T) {
	t.Parallel()

	client := NewMockClient(WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.FetchProducts(ctx, 3)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
}
