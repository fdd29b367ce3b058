package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateDelivery OutboxAggregateType = "delivery"
	AggregateProduct  OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDelivery,
	AggregateProduct,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType names the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderPaymentUpdated   OutboxEventType = "order_payment_updated"
	EventDeliveryAssigned      OutboxEventType = "delivery_assigned"
	EventDeliveryStatusChanged OutboxEventType = "delivery_status_changed"
	EventInventoryAdjusted     OutboxEventType = "inventory_adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderPaymentUpdated,
	EventDeliveryAssigned,
	EventDeliveryStatusChanged,
	EventInventoryAdjusted,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
