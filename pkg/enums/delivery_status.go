package enums

import "slices"

// DeliveryStatus tracks a courier's progress on an order.
type DeliveryStatus string

const (
	DeliveryStatusAssigned       DeliveryStatus = "assigned"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusAssigned,
	DeliveryStatusOutForDelivery,
	DeliveryStatusDelivered,
}

var deliveryTransitions = map[DeliveryStatus]map[DeliveryStatus]bool{
	DeliveryStatusAssigned:       {DeliveryStatusOutForDelivery: true, DeliveryStatusDelivered: true},
	DeliveryStatusOutForDelivery: {DeliveryStatusDelivered: true},
	DeliveryStatusDelivered:      {},
}

func (d DeliveryStatus) String() string {
	return string(d)
}

func (d DeliveryStatus) IsValid() bool {
	return slices.Contains(validDeliveryStatuses, d)
}

// IsTerminal reports whether no further transitions are possible.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusDelivered
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	return parse(validDeliveryStatuses, value, "delivery status")
}

// CanTransitionDelivery reports whether from -> to moves the delivery forward.
func CanTransitionDelivery(from, to DeliveryStatus) bool {
	return deliveryTransitions[from][to]
}
