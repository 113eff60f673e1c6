package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/amaiabotanic/storefront/internal/querycache"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

// CachedClient memoizes a Client through the query cache. Reads return the
// last good value together with the error when a refresh fails.
type CachedClient struct {
	source   Client
	products *querycache.Cache[[]Product]
	product  *querycache.Cache[*Product]
	logg     *logger.Logger
}

type CachedOption func(*cachedOptions)

type cachedOptions struct {
	recorder querycache.Recorder
	logg     *logger.Logger
}

func WithRecorder(rec querycache.Recorder) CachedOption {
	return func(o *cachedOptions) { o.recorder = rec }
}

func WithLogger(logg *logger.Logger) CachedOption {
	return func(o *cachedOptions) { o.logg = logg }
}

func NewCachedClient(source Client, opts ...CachedOption) *CachedClient {
	var o cachedOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &CachedClient{
		source:   source,
		products: querycache.New[[]Product](querycache.WithName("products"), querycache.WithRecorder(o.recorder)),
		product:  querycache.New[*Product](querycache.WithName("product"), querycache.WithRecorder(o.recorder)),
		logg:     o.logg,
	}
}

func productsKey(count int) querycache.Key {
	return querycache.Key{"products", strconv.Itoa(count)}
}

func productKey(handle string) querycache.Key {
	return querycache.Key{"product", strings.TrimSpace(handle)}
}

// ProductsState loads the first count products and returns the full query state.
func (c *CachedClient) ProductsState(ctx context.Context, count int) querycache.State[[]Product] {
	state, err := c.products.Fetch(ctx, productsKey(count), func(ctx context.Context) ([]Product, error) {
		return c.source.FetchProducts(ctx, count)
	})
	if err != nil {
		c.logFailure(ctx, "catalog products fetch failed", err)
	}
	state.Data = cloneProducts(state.Data)
	return state
}

// ProductState loads one product by handle and returns the full query state.
func (c *CachedClient) ProductState(ctx context.Context, handle string) querycache.State[*Product] {
	state, err := c.product.Fetch(ctx, productKey(handle), func(ctx context.Context) (*Product, error) {
		return c.source.FetchProductByHandle(ctx, handle)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logFailure(ctx, "catalog product fetch failed", err)
	}
	if state.Data != nil {
		p := state.Data.Clone()
		state.Data = &p
	}
	return state
}

func (c *CachedClient) FetchProducts(ctx context.Context, count int) ([]Product, error) {
	state := c.ProductsState(ctx, count)
	if state.Err != nil {
		return state.Data, state.Err
	}
	return state.Data, ctx.Err()
}

func (c *CachedClient) FetchProductByHandle(ctx context.Context, handle string) (*Product, error) {
	state := c.ProductState(ctx, handle)
	if state.Err != nil {
		return state.Data, state.Err
	}
	if state.Data == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return state.Data, nil
}

// Invalidate marks every cached catalog query stale.
func (c *CachedClient) Invalidate() {
	c.products.InvalidatePrefix(querycache.Key{"products"})
	c.product.InvalidatePrefix(querycache.Key{"product"})
}

func (c *CachedClient) InvalidateProducts() {
	c.products.InvalidatePrefix(querycache.Key{"products"})
}

func (c *CachedClient) InvalidateProduct(handle string) {
	c.product.Invalidate(productKey(handle))
}

func (c *CachedClient) logFailure(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil {
		return
	}
	c.logg.Error(ctx, msg, err)
}
