package catalog

import (
	"context"
	"strings"
	"time"
)

const mockImageURL = "https://images.unsplash.com/photo-1608571423902-eed4a5ad8108?w=400&h=400&fit=crop&crop=center"

// MockClient serves a static product fixture.
type MockClient struct {
	products []Product
	latency  time.Duration
}

type MockOption func(*MockClient)

// WithLatency delays every read, simulating a slow catalog.
func WithLatency(d time.Duration) MockOption {
	return func(m *MockClient) {
		if d > 0 {
			m.latency = d
		}
	}
}

// WithProducts replaces the default AMAIA fixture.
func WithProducts(products []Product) MockOption {
	return func(m *MockClient) {
		m.products = cloneProducts(products)
	}
}

func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{products: MockProducts()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// FetchProducts returns the first count products. count <= 0 or larger than
// the fixture returns everything.
func (m *MockClient) FetchProducts(ctx context.Context, count int) ([]Product, error) {
	if err := m.wait(ctx); err != nil {
		return nil, fetchErr("fetch products", err)
	}
	products := m.products
	if count > 0 && count < len(products) {
		products = products[:count]
	}
	return cloneProducts(products), nil
}

func (m *MockClient) FetchProductByHandle(ctx context.Context, handle string) (*Product, error) {
	if err := m.wait(ctx); err != nil {
		return nil, fetchErr("fetch product", err)
	}
	handle = strings.TrimSpace(handle)
	for _, p := range m.products {
		if p.Handle == handle {
			out := p.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockClient) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MockProducts returns a fresh copy of the AMAIA botanical oil fixture.
func MockProducts() []Product {
	return []Product{
		mockOil("castor-oil", "CASTOR OIL", "Castor Oil", "24.99",
			"100% Pure & Natural. Cold-pressed. Made with love. For strong and shiny hair. Pure botanical oil for radiant hair and nourished skin."),
		mockOil("argan-oil", "ARGAN OIL", "Argan Oil", "32.99",
			"100% Pure & Natural. Cold-pressed from Moroccan kernels. Rich in Vitamin E. For hydrated and smooth hair. Perfect for daily nourishment."),
		mockOil("jojoba-oil", "JOJOBA OIL", "Jojoba Oil", "28.99",
			"100% Pure & Natural. Golden jojoba oil. Balances natural oil production. For all hair types. Lightweight and non-greasy formula."),
		mockOil("rosehip-oil", "ROSEHIP OIL", "Rosehip Oil", "35.99",
			"100% Pure & Natural. Rich in essential fatty acids. Anti-aging properties. For radiant and youthful skin. Perfect for face and hair care."),
		mockOil("coconut-oil", "COCONUT OIL", "Coconut Oil", "22.99",
			"100% Pure & Natural. Virgin coconut oil. Deep conditioning treatment. For dry and damaged hair. Provides intense moisture and shine."),
		mockOil("sweet-almond-oil", "SWEET ALMOND OIL", "Sweet Almond Oil", "26.99",
			"100% Pure & Natural. Light and easily absorbed. Rich in Vitamin E and proteins. For soft and manageable hair. Gentle for sensitive skin."),
	}
}

func mockOil(handle, title, name, amount, description string) Product {
	price := Money{Amount: amount, CurrencyCode: "EUR"}
	return Product{
		ID:          "gid://shopify/Product/" + handle,
		Title:       title,
		Description: description,
		Handle:      handle,
		PriceRange:  PriceRange{MinVariantPrice: price},
		Images: []Image{{
			URL:     mockImageURL,
			AltText: "AMAIA Botanic " + name + " - 50ml bottle",
		}},
		Variants: []Variant{{
			ID:               "gid://shopify/ProductVariant/" + handle + "-50ml",
			Title:            "50ml",
			Price:            price,
			AvailableForSale: true,
			SelectedOptions:  []SelectedOption{{Name: "Size", Value: "50ml"}},
		}},
	}
}

func cloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
