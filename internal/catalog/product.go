package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrInvalidAmount is returned for money amounts that are negative or not numbers.
var ErrInvalidAmount = errors.New("invalid money amount")

// Money is a decimal amount kept as the string the catalog returned.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Decimal parses Amount. Negative or unparsable amounts are rejected.
func (m Money) Decimal() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(m.Amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, m.Amount)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, m.Amount)
	}
	return amount, nil
}

// Validate checks the amount and the ISO 4217 currency code.
func (m Money) Validate() error {
	if _, err := m.Decimal(); err != nil {
		return err
	}
	if _, err := currency.ParseISO(m.CurrencyCode); err != nil {
		return fmt.Errorf("invalid currency code %q: %w", m.CurrencyCode, err)
	}
	return nil
}

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PriceRange struct {
	MinVariantPrice Money `json:"minVariantPrice"`
}

type Variant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Price            Money            `json:"price"`
	AvailableForSale bool             `json:"availableForSale"`
	SelectedOptions  []SelectedOption `json:"selectedOptions"`
}

// Product is the normalized catalog entry shared by every client implementation.
type Product struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Handle      string     `json:"handle"`
	PriceRange  PriceRange `json:"priceRange"`
	Images      []Image    `json:"images"`
	Variants    []Variant  `json:"variants"`
}

// FirstVariant returns the default variant used by listing add-to-cart.
func (p Product) FirstVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

func (p Product) VariantByID(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Clone returns a deep copy so callers can keep a snapshot.
func (p Product) Clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]Image(nil), p.Images...)
	}
	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			out.Variants[i] = v.Clone()
		}
	}
	return out
}

func (v Variant) Clone() Variant {
	out := v
	if v.SelectedOptions != nil {
		out.SelectedOptions = append([]SelectedOption(nil), v.SelectedOptions...)
	}
	return out
}
