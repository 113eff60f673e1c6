// Package checkout turns a cart into an order: it prices the cart, collects
// payment through a Gateway and clears the cart once payment succeeds.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/amaiabotanic/storefront/internal/notifications"
	"github.com/amaiabotanic/storefront/pkg/enums"
	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/amaiabotanic/storefront/pkg/metrics"
)

// HomeRoute is where a shopper is sent after a confirmed order.
const HomeRoute = "/"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// PaymentError reports a declined or failed charge. The cart is untouched.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment failed: %v", e.Err)
	}
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Notifier receives user-facing notices.
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notice)
}

// Navigator receives the route the shopper should be sent to next.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// Params wires an Orchestrator. Cart is required; Gateway defaults to a
// SimulatedGateway and Shipping to DefaultShippingPolicy.
type Params struct {
	Cart      *cart.Store
	Gateway   Gateway
	Notifier  Notifier
	Navigator Navigator
	Logger    *logger.Logger
	Metrics   *metrics.CheckoutMetrics
	Shipping  ShippingPolicy
	Clock     func() time.Time

	ids *orderIDs
}

// Result describes a confirmed order.
type Result struct {
	OrderID  string
	Items    []cart.LineItem
	Totals   Totals
	Redirect string
}

const (
	stateIdle int32 = iota
	stateProcessing
	stateSuccess
	stateFailed
)

var stateNames = [...]enums.CheckoutState{
	stateIdle:       enums.CheckoutStateIdle,
	stateProcessing: enums.CheckoutStateProcessing,
	stateSuccess:    enums.CheckoutStateSuccess,
	stateFailed:     enums.CheckoutStateFailed,
}

// Orchestrator runs checkout for one cart. At most one Submit is in flight
// at a time: Idle -> Processing -> Success|Failed -> Idle.
type Orchestrator struct {
	cart      *cart.Store
	gateway   Gateway
	notifier  Notifier
	navigator Navigator
	logg      *logger.Logger
	metrics   *metrics.CheckoutMetrics
	shipping  ShippingPolicy
	clock     func() time.Time
	ids       *orderIDs

	state atomic.Int32
}

func NewOrchestrator(params Params) (*Orchestrator, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Gateway == nil {
		params.Gateway = NewSimulatedGateway()
	}
	if params.Shipping.isZero() {
		params.Shipping = DefaultShippingPolicy()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	if params.ids == nil {
		params.ids = newOrderIDs(params.Clock)
	}
	return &Orchestrator{
		cart:      params.Cart,
		gateway:   params.Gateway,
		notifier:  params.Notifier,
		navigator: params.Navigator,
		logg:      params.Logger,
		metrics:   params.Metrics,
		shipping:  params.Shipping,
		clock:     params.Clock,
		ids:       params.ids,
	}, nil
}

func (o *Orchestrator) State() enums.CheckoutState {
	return stateNames[o.state.Load()]
}

// CanCheckout reports whether the cart has items and no checkout is running.
func (o *Orchestrator) CanCheckout() bool {
	return o.state.Load() == stateIdle && o.cart.TotalItems() > 0
}

// Quote prices the current cart.
func (o *Orchestrator) Quote() Totals {
	return o.shipping.Quote(o.cart.Items())
}

// Submit validates the forms, charges the cart total and, on success, clears
// the cart and returns the order. Invalid input and the entry guards leave
// the state untouched.
func (o *Orchestrator) Submit(ctx context.Context, customer CustomerInfo, payment PaymentInfo) (*Result, error) {
	if o.state.Load() != stateIdle {
		o.metrics.IncSubmission("in_progress")
		return nil, ErrCheckoutInProgress
	}
	if o.cart.TotalItems() == 0 {
		o.metrics.IncSubmission("empty_cart")
		return nil, ErrEmptyCart
	}
	payment = payment.normalized()
	if err := ValidateDetails(customer, payment); err != nil {
		o.metrics.IncSubmission("invalid")
		return nil, err
	}
	if !o.state.CompareAndSwap(stateIdle, stateProcessing) {
		o.metrics.IncSubmission("in_progress")
		return nil, ErrCheckoutInProgress
	}
	defer o.state.Store(stateIdle)

	items := o.cart.Items()
	if len(items) == 0 {
		o.metrics.IncSubmission("empty_cart")
		return nil, ErrEmptyCart
	}
	totals := o.shipping.Quote(items)
	logCtx := o.logg.WithFields(ctx, map[string]any{
		"storage_key": o.cart.Key(),
		"total":       totals.Total.StringFixed(2),
		"card_last4":  payment.Last4(),
	})
	o.logg.Info(logCtx, "checkout processing")

	started := o.clock()
	res, err := o.gateway.Charge(ctx, ChargeRequest{
		Amount:       totals.Total,
		CurrencyCode: totals.CurrencyCode,
		Customer:     customer,
		Payment:      payment,
	})
	elapsed := o.clock().Sub(started)

	if err != nil || !res.Status.Approved() {
		perr := &PaymentError{Reason: res.Reason, Err: err}
		if perr.Reason == "" && err == nil {
			perr.Reason = "payment not approved"
		}
		o.state.Store(stateFailed)
		o.metrics.ObservePayment(enums.PaymentStatusFailure.String(), elapsed)
		o.metrics.IncSubmission(enums.PaymentStatusFailure.String())
		o.logg.Error(logCtx, "checkout payment failed", perr)
		o.notify(ctx, notifications.PaymentFailed())
		return nil, perr
	}

	orderID := o.ids.Next()
	o.cart.ClearCart(ctx)
	o.state.Store(stateSuccess)
	o.metrics.ObservePayment(enums.PaymentStatusSuccess.String(), elapsed)
	o.metrics.IncSubmission(enums.PaymentStatusSuccess.String())
	o.logg.Info(o.logg.WithOrderID(logCtx, orderID), "checkout confirmed")
	o.notify(ctx, notifications.OrderConfirmed(orderID))
	if o.navigator != nil {
		o.navigator.Navigate(ctx, HomeRoute)
	}

	return &Result{
		OrderID:  orderID,
		Items:    items,
		Totals:   totals,
		Redirect: HomeRoute,
	}, nil
}

func (o *Orchestrator) notify(ctx context.Context, n notifications.Notice) {
	if o.notifier != nil {
		o.notifier.Notify(ctx, n)
	}
}
