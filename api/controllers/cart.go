package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amaiabotanic/storefront/api/middleware"
	"github.com/amaiabotanic/storefront/api/responses"
	"github.com/amaiabotanic/storefront/api/validators"
	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/amaiabotanic/storefront/internal/catalog"
	"github.com/amaiabotanic/storefront/internal/checkout"
	"github.com/amaiabotanic/storefront/internal/notifications"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

// CheckoutRoute is where the shopper goes after passing the cart entry guard.
const CheckoutRoute = "/checkout"

type cartSessions interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

type productLookup interface {
	FetchProductByHandle(ctx context.Context, handle string) (*catalog.Product, error)
}

type noticeFeeds interface {
	For(sessionID string) *notifications.Feed
}

type addItemRequest struct {
	Handle    string `json:"handle" validate:"required,max=255"`
	VariantID string `json:"variantId" validate:"omitempty,max=255"`
	Quantity  int    `json:"quantity" validate:"gte=0,max=999"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type quoteResponse struct {
	Subtotal     string `json:"subtotal"`
	Shipping     string `json:"shipping"`
	Total        string `json:"total"`
	CurrencyCode string `json:"currencyCode"`
	ItemCount    int    `json:"itemCount"`
}

type cartResponse struct {
	Items      []cart.LineItem `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice string          `json:"totalPrice"`
	Summary    string          `json:"summary"`
	Quote      quoteResponse   `json:"quote"`
}

func newQuoteResponse(t checkout.Totals) quoteResponse {
	return quoteResponse{
		Subtotal:     t.Subtotal.StringFixed(2),
		Shipping:     t.Shipping.StringFixed(2),
		Total:        t.Total.StringFixed(2),
		CurrencyCode: t.CurrencyCode,
		ItemCount:    t.ItemCount,
	}
}

func newCartResponse(items []cart.LineItem, shipping checkout.ShippingPolicy) cartResponse {
	if items == nil {
		items = []cart.LineItem{}
	}
	total := cart.TotalItems(items)
	return cartResponse{
		Items:      items,
		TotalItems: total,
		TotalPrice: cart.TotalPrice(items).StringFixed(2),
		Summary:    cartSummary(total),
		Quote:      newQuoteResponse(shipping.Quote(items)),
	}
}

func cartSummary(totalItems int) string {
	switch totalItems {
	case 0:
		return "Your cart is empty"
	case 1:
		return "1 item ready for checkout"
	default:
		return fmt.Sprintf("%d items ready for checkout", totalItems)
	}
}

func sessionStore(r *http.Request, sessions cartSessions) (string, *cart.Store, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing cart session")
	}
	store, err := sessions.Get(r.Context(), sessionID)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open cart")
	}
	return sessionID, store, nil
}

func variantParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "variantId")
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	return id, nil
}

func CartFetch(sessions cartSessions, shipping checkout.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Items(), shipping))
	}
}

// CartAddItem snapshots the requested product variant into the cart. Without
// a variantId the first variant is used.
func CartAddItem(sessions cartSessions, products productLookup, feeds noticeFeeds, shipping checkout.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.FetchProductByHandle(r.Context(), strings.TrimSpace(req.Handle))
		if product == nil || errors.Is(err, catalog.ErrNotFound) {
			responses.WriteError(r.Context(), logg, w, catalogError(r.Context(), err, "load product"))
			return
		}

		variant, ok := product.FirstVariant()
		if req.VariantID != "" {
			variant, ok = product.VariantByID(req.VariantID)
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]string{"handle": product.Handle, "variantId": req.VariantID}))
			return
		}
		if !variant.AvailableForSale {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "variant is not available for sale"))
			return
		}
		if err := variant.Price.Validate(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog returned an invalid price"))
			return
		}

		items := store.AddItem(r.Context(), cart.NewLineItem(*product, variant, req.Quantity))
		if feeds != nil {
			feeds.For(sessionID).Notify(r.Context(), notifications.AddedToCart(product.Title))
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(items, shipping))
	}
}

// CartUpdateItem sets a line quantity. Zero or negative removes the line.
func CartUpdateItem(sessions cartSessions, shipping checkout.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := variantParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := store.UpdateQuantity(r.Context(), variantID, *req.Quantity)
		responses.WriteSuccess(w, newCartResponse(items, shipping))
	}
}

func CartRemoveItem(sessions cartSessions, shipping checkout.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := variantParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := store.RemoveItem(r.Context(), variantID)
		responses.WriteSuccess(w, newCartResponse(items, shipping))
	}
}

func CartClear(sessions cartSessions, shipping checkout.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.ClearCart(r.Context()), shipping))
	}
}

// CartProceed is the cart page's checkout entry guard.
func CartProceed(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if store.TotalItems() == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"redirect": CheckoutRoute})
	}
}
