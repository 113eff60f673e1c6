package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIVersion           = "2025-07"
	defaultProductCount         = 20
	maxProductCount             = 250
	storefrontTokenHeader       = "X-Shopify-Storefront-Access-Token"
	responseBodyReadLimit int64 = 1024
)

var (
	errStoreDomainRequired = errors.New("storefront store domain is required")
	errAccessTokenRequired = errors.New("storefront access token is required")
)

const productFields = `
  id
  title
  description
  handle
  priceRange { minVariantPrice { amount currencyCode } }
  images(first: 5) { edges { node { url altText } } }
  variants(first: 10) {
    edges {
      node {
        id
        title
        price { amount currencyCode }
        availableForSale
        selectedOptions { name value }
      }
    }
  }
`

const productsQuery = `query GetProducts($first: Int!) {
  products(first: $first) { edges { node {` + productFields + `} } }
}`

const productByHandleQuery = `query GetProductByHandle($handle: String!) {
  productByHandle(handle: $handle) {` + productFields + `}
}`

// StorefrontClient reads products from the Shopify Storefront GraphQL API.
type StorefrontClient struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	token      string
}

type StorefrontOption func(*StorefrontClient)

func WithHTTPClient(client *http.Client) StorefrontOption {
	return func(c *StorefrontClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the transport timeout on the default HTTP client.
func WithTimeout(d time.Duration) StorefrontOption {
	return func(c *StorefrontClient) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithAPIVersion(version string) StorefrontOption {
	return func(c *StorefrontClient) {
		if v := strings.TrimSpace(version); v != "" {
			c.apiVersion = v
		}
	}
}

// NewStorefrontClient builds a client for the given shop domain. A domain
// without a scheme is reached over https.
func NewStorefrontClient(storeDomain, accessToken string, opts ...StorefrontOption) (*StorefrontClient, error) {
	domain := strings.TrimRight(strings.TrimSpace(storeDomain), "/")
	if domain == "" {
		return nil, errStoreDomainRequired
	}
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}

	client := &StorefrontClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    domain,
		apiVersion: defaultAPIVersion,
		token:      token,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Endpoint returns the GraphQL URL requests are posted to.
func (c *StorefrontClient) Endpoint() string {
	return fmt.Sprintf("%s/api/%s/graphql.json", c.baseURL, c.apiVersion)
}

func (c *StorefrontClient) FetchProducts(ctx context.Context, count int) ([]Product, error) {
	var data struct {
		Products productConnection `json:"products"`
	}
	if err := c.query(ctx, productsQuery, map[string]any{"first": clampCount(count)}, &data); err != nil {
		return nil, fetchErr("fetch products", err)
	}
	products := make([]Product, 0, len(data.Products.Edges))
	for _, edge := range data.Products.Edges {
		products = append(products, edge.Node.normalize())
	}
	return products, nil
}

func (c *StorefrontClient) FetchProductByHandle(ctx context.Context, handle string) (*Product, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrNotFound
	}
	var data struct {
		ProductByHandle *productNode `json:"productByHandle"`
	}
	if err := c.query(ctx, productByHandleQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, fetchErr("fetch product", err)
	}
	if data.ProductByHandle == nil {
		return nil, ErrNotFound
	}
	product := data.ProductByHandle.normalize()
	return &product, nil
}

func (c *StorefrontClient) query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(storefrontTokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("graphql: %s", strings.Join(messages, "; "))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return errors.New("graphql: empty data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func clampCount(count int) int {
	switch {
	case count <= 0:
		return defaultProductCount
	case count > maxProductCount:
		return maxProductCount
	default:
		return count
	}
}

type productConnection struct {
	Edges []struct {
		Node productNode `json:"node"`
	} `json:"edges"`
}

type productNode struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Handle      string     `json:"handle"`
	PriceRange  PriceRange `json:"priceRange"`
	Images      struct {
		Edges []struct {
			Node Image `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node Variant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (n productNode) normalize() Product {
	p := Product{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Handle:      n.Handle,
		PriceRange:  n.PriceRange,
		Images:      make([]Image, 0, len(n.Images.Edges)),
		Variants:    make([]Variant, 0, len(n.Variants.Edges)),
	}
	for _, e := range n.Images.Edges {
		p.Images = append(p.Images, e.Node)
	}
	for _, e := range n.Variants.Edges {
		p.Variants = append(p.Variants, e.Node)
	}
	return p
}
