package cart

import "github.com/shopspring/decimal"

// TotalItems sums quantities across lines.
func TotalItems(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums price times quantity across lines. Lines with an
// unparsable price contribute nothing; the store never admits them.
func TotalPrice(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		line, err := item.LineTotal()
		if err != nil {
			continue
		}
		total = total.Add(line)
	}
	return total
}
