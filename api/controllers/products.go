package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amaiabotanic/storefront/api/responses"
	"github.com/amaiabotanic/storefront/api/validators"
	"github.com/amaiabotanic/storefront/internal/catalog"
	"github.com/amaiabotanic/storefront/internal/querycache"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

// StaleHeader marks a response served from the last good catalog value after
// a refresh failed.
const StaleHeader = "X-Catalog-Stale"

const (
	defaultProductCount = 20
	maxProductCount     = 250
)

type productReader interface {
	ProductsState(ctx context.Context, count int) querycache.State[[]catalog.Product]
	ProductState(ctx context.Context, handle string) querycache.State[*catalog.Product]
}

type catalogInvalidator interface {
	Invalidate()
	InvalidateProduct(handle string)
}

type productListResponse struct {
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

func ProductList(reader productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := validators.QueryInt(r, "count", validators.IntRange{Fallback: defaultProductCount, Min: 1, Max: maxProductCount})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state := reader.ProductsState(r.Context(), count)
		if !state.HasData {
			responses.WriteError(r.Context(), logg, w, catalogError(r.Context(), state.Err, "load products"))
			return
		}
		markStale(w, state.Err)

		products := state.Data
		if products == nil {
			products = []catalog.Product{}
		}
		responses.WriteSuccess(w, productListResponse{Products: products, Count: len(products)})
	}
}

func ProductDetail(reader productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := strings.TrimSpace(chi.URLParam(r, "handle"))
		if handle == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product handle is required"))
			return
		}

		state := reader.ProductState(r.Context(), handle)
		if !state.HasData || state.Data == nil || errors.Is(state.Err, catalog.ErrNotFound) {
			responses.WriteError(r.Context(), logg, w, catalogError(r.Context(), state.Err, "load product"))
			return
		}
		markStale(w, state.Err)
		responses.WriteSuccess(w, state.Data)
	}
}

// ProductInvalidate marks cached catalog queries stale. With ?handle= only
// that product is invalidated.
func ProductInvalidate(cache catalogInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := validators.QueryHandle(r, "handle")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if handle != "" {
			cache.InvalidateProduct(handle)
		} else {
			cache.Invalidate()
		}
		logg.Info(logg.WithField(r.Context(), "handle", handle), "catalog cache invalidated")
		responses.WriteSuccess(w, map[string]string{"status": "invalidated"})
	}
}

func markStale(w http.ResponseWriter, err error) {
	if err != nil {
		w.Header().Set(StaleHeader, "true")
	}
}

func catalogError(ctx context.Context, err error, op string) error {
	switch {
	case err == nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctxErr, op)
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	case errors.Is(err, catalog.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
}
