package cart

import (
	"errors"
	"fmt"

	"github.com/amaiabotanic/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// LineItem is one cart line. Product and Price are snapshots taken when the
// item was added; later catalog changes do not affect them.
type LineItem struct {
	Product         catalog.Product          `json:"product"`
	VariantID       string                   `json:"variantId"`
	VariantTitle    string                   `json:"variantTitle"`
	Price           catalog.Money            `json:"price"`
	Quantity        int                      `json:"quantity"`
	SelectedOptions []catalog.SelectedOption `json:"selectedOptions"`
}

// NewLineItem snapshots product and variant into a line of the given quantity.
func NewLineItem(product catalog.Product, variant catalog.Variant, quantity int) LineItem {
	v := variant.Clone()
	return LineItem{
		Product:         product.Clone(),
		VariantID:       v.ID,
		VariantTitle:    v.Title,
		Price:           v.Price,
		Quantity:        quantity,
		SelectedOptions: v.SelectedOptions,
	}
}

func (l LineItem) Clone() LineItem {
	out := l
	out.Product = l.Product.Clone()
	if l.SelectedOptions != nil {
		out.SelectedOptions = append([]catalog.SelectedOption(nil), l.SelectedOptions...)
	}
	return out
}

// LineTotal is price times quantity.
func (l LineItem) LineTotal() (decimal.Decimal, error) {
	price, err := l.Price.Decimal()
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(decimal.NewFromInt(int64(l.Quantity))), nil
}

func (l LineItem) validate() error {
	if l.VariantID == "" {
		return errors.New("line item variant id is required")
	}
	if l.Quantity < 1 {
		return fmt.Errorf("line item %s: quantity %d below 1", l.VariantID, l.Quantity)
	}
	if _, err := l.Price.Decimal(); err != nil {
		return fmt.Errorf("line item %s: %w", l.VariantID, err)
	}
	return nil
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func indexOf(items []LineItem, variantID string) int {
	for i, item := range items {
		if item.VariantID == variantID {
			return i
		}
	}
	return -1
}
