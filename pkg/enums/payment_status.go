package enums

import "slices"

// PaymentStatus is the bookkeeping state of an order's payment.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusUnpaid,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

// paymentTransitions lists the edges anyone allowed to touch the order may take.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentStatusUnpaid: {PaymentStatusPaid: true, PaymentStatusFailed: true},
	PaymentStatusFailed: {PaymentStatusPaid: true},
	PaymentStatusPaid:   {},
}

// adminPaymentTransitions are the extra edges reserved for admins.
var adminPaymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentStatusPaid:   {PaymentStatusUnpaid: true, PaymentStatusFailed: true},
	PaymentStatusFailed: {PaymentStatusUnpaid: true},
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	return slices.Contains(validPaymentStatuses, p)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(validPaymentStatuses, value, "payment status")
}

// CanTransitionPayment reports whether from -> to is a legal edge. Same-state
// requests are not edges; callers treat them as no-ops before asking.
func CanTransitionPayment(from, to PaymentStatus, admin bool) bool {
	if paymentTransitions[from][to] {
		return true
	}
	return admin && adminPaymentTransitions[from][to]
}
