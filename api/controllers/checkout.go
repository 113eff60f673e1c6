package controllers

import (
	"errors"
	"net/http"

	"github.com/amaiabotanic/storefront/api/responses"
	"github.com/amaiabotanic/storefront/api/validators"
	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/amaiabotanic/storefront/internal/checkout"
	"github.com/amaiabotanic/storefront/pkg/enums"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

type orchestratorRegistry interface {
	For(sessionID string, store *cart.Store) (*checkout.Orchestrator, error)
}

type checkoutRequest struct {
	Customer checkout.CustomerInfo `json:"customer"`
	Payment  checkout.PaymentInfo  `json:"payment"`
}

type orderResponse struct {
	OrderID  string          `json:"orderId"`
	Items    []cart.LineItem `json:"items"`
	Totals   quoteResponse   `json:"totals"`
	Redirect string          `json:"redirect"`
}

type checkoutStatusResponse struct {
	State       enums.CheckoutState `json:"state"`
	CanCheckout bool                `json:"canCheckout"`
	Quote       quoteResponse       `json:"quote"`
}

// CheckoutSubmit charges the session cart and confirms the order.
func CheckoutSubmit(sessions cartSessions, registry orchestratorRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orchestrator, err := registry.For(sessionID, store)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "start checkout"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := orchestrator.Submit(r.Context(), req.Customer, req.Payment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, mapCheckoutError(err))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orderResponse{
			OrderID:  result.OrderID,
			Items:    result.Items,
			Totals:   newQuoteResponse(result.Totals),
			Redirect: result.Redirect,
		})
	}
}

func CheckoutStatus(sessions cartSessions, registry orchestratorRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, store, err := sessionStore(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orchestrator, err := registry.For(sessionID, store)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout"))
			return
		}

		responses.WriteSuccess(w, checkoutStatusResponse{
			State:       orchestrator.State(),
			CanCheckout: orchestrator.CanCheckout(),
			Quote:       newQuoteResponse(orchestrator.Quote()),
		})
	}
}

func mapCheckoutError(err error) error {
	var paymentErr *checkout.PaymentError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "cart is empty")
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout already in progress")
	case errors.As(err, &paymentErr):
		return pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "There was an error processing your payment. Please try again.")
	case pkgerrors.As(err) != nil:
		return err
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
}
