package enums

// CheckoutState tracks where a checkout attempt is in its lifecycle. A
// finished attempt, successful or not, drops back to idle.
type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "idle"
	CheckoutStateProcessing CheckoutState = "processing"
	CheckoutStateSuccess    CheckoutState = "success"
	CheckoutStateFailed     CheckoutState = "failed"
)

func (c CheckoutState) String() string {
	return string(c)
}
