package enums

import "slices"

// PaymentMethod describes how a customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodRazorpay PaymentMethod = "Razorpay"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodRazorpay,
}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	return slices.Contains(validPaymentMethods, p)
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(validPaymentMethods, value, "payment method")
}
