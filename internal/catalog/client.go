// Package catalog reads AMAIA product data from the mock fixture or the
// Shopify Storefront API and normalizes it into Product values.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no product matches a handle.
var ErrNotFound = errors.New("product not found")

// Client is a read-only product source. Implementations do not cache or retry.
type Client interface {
	FetchProducts(ctx context.Context, count int) ([]Product, error)
	FetchProductByHandle(ctx context.Context, handle string) (*Product, error)
}

// FetchError reports a transport or decoding failure while talking to the catalog.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func fetchErr(op string, err error) error {
	return &FetchError{Op: op, Err: err}
}
