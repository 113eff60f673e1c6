package enums

// PaymentStatus is the outcome a payment gateway reports for one charge.
// The values double as metric labels.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailure PaymentStatus = "failure"
)

func (p PaymentStatus) String() string { return string(p) }

// Approved is true only for an explicit success; an empty or unknown status
// from a gateway counts as a decline.
func (p PaymentStatus) Approved() bool { return p == PaymentStatusSuccess }
