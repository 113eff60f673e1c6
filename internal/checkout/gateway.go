package checkout

import (
	"context"
	"time"

	"github.com/amaiabotanic/storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

const defaultPaymentDelay = 2 * time.Second

// ChargeRequest is what the orchestrator asks a Gateway to collect.
type ChargeRequest struct {
	Amount       decimal.Decimal
	CurrencyCode string
	Customer     CustomerInfo
	Payment      PaymentInfo
}

type ChargeResult struct {
	Status enums.PaymentStatus
	Reason string
}

// Gateway collects payment. A returned error means the charge could not be
// attempted; a declined charge is a nil error with a failure status.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedGateway waits a fixed delay and then approves, or declines when
// configured to fail. It never contacts a processor.
type SimulatedGateway struct {
	delay time.Duration
	fail  bool
}

type GatewayOption func(*SimulatedGateway)

func WithDelay(d time.Duration) GatewayOption {
	return func(g *SimulatedGateway) {
		if d >= 0 {
			g.delay = d
		}
	}
}

func WithFailure(fail bool) GatewayOption {
	return func(g *SimulatedGateway) {
		g.fail = fail
	}
}

func NewSimulatedGateway(opts ...GatewayOption) *SimulatedGateway {
	g := &SimulatedGateway{delay: defaultPaymentDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *SimulatedGateway) Charge(ctx context.Context, _ ChargeRequest) (ChargeResult, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	if g.fail {
		return ChargeResult{Status: enums.PaymentStatusFailure, Reason: "simulated decline"}, nil
	}
	return ChargeResult{Status: enums.PaymentStatusSuccess}, nil
}
