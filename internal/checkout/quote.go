package checkout

import (
	"fmt"

	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "EUR"

var (
	defaultFreeShippingOver = decimal.RequireFromString("50.00")
	defaultFlatShipping     = decimal.RequireFromString("5.99")
)

// ShippingPolicy charges a flat fee unless the subtotal is strictly above
// FreeOver.
type ShippingPolicy struct {
	FreeOver decimal.Decimal
	Flat     decimal.Decimal
}

func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FreeOver: defaultFreeShippingOver, Flat: defaultFlatShipping}
}

// NewShippingPolicy parses decimal amounts such as "50.00" and "5.99".
func NewShippingPolicy(freeOver, flat string) (ShippingPolicy, error) {
	threshold, err := decimal.NewFromString(freeOver)
	if err != nil {
		return ShippingPolicy{}, fmt.Errorf("free shipping threshold: %w", err)
	}
	fee, err := decimal.NewFromString(flat)
	if err != nil {
		return ShippingPolicy{}, fmt.Errorf("flat shipping: %w", err)
	}
	if threshold.IsNegative() || fee.IsNegative() {
		return ShippingPolicy{}, fmt.Errorf("shipping amounts must not be negative")
	}
	return ShippingPolicy{FreeOver: threshold, Flat: fee}, nil
}

func (p ShippingPolicy) isZero() bool {
	return p.FreeOver.IsZero() && p.Flat.IsZero()
}

// ShippingFor returns the shipping fee for subtotal.
func (p ShippingPolicy) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeOver) {
		return decimal.Zero
	}
	return p.Flat
}

// Totals is the price breakdown shown on the checkout summary.
type Totals struct {
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
	CurrencyCode string
	ItemCount    int
}

// Quote prices items under p.
func (p ShippingPolicy) Quote(items []cart.LineItem) Totals {
	subtotal := cart.TotalPrice(items)
	shipping := p.ShippingFor(subtotal)
	currency := defaultCurrency
	if len(items) > 0 && items[0].Price.CurrencyCode != "" {
		currency = items[0].Price.CurrencyCode
	}
	return Totals{
		Subtotal:     subtotal,
		Shipping:     shipping,
		Total:        subtotal.Add(shipping),
		CurrencyCode: currency,
		ItemCount:    cart.TotalItems(items),
	}
}

// Quote prices items under the default shipping policy.
func Quote(items []cart.LineItem) Totals {
	return DefaultShippingPolicy().Quote(items)
}
