package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts business outcomes of the order and inventory flows.
type LedgerMetrics struct {
	ordersPlaced        prometheus.Counter
	orderRejections     *prometheus.CounterVec
	stockUnits          *prometheus.CounterVec
	paymentTransitions  *prometheus.CounterVec
	deliveryTransitions *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hardware_orders_placed_total",
			Help: "Orders committed.",
		}),
		orderRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_order_rejections_total",
			Help: "Order placements rolled back, by error code.",
		}, []string{"code"}),
		stockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_stock_units_total",
			Help: "Absolute stock units moved through the inventory ledger.",
		}, []string{"direction"}),
		paymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_payment_transitions_total",
			Help: "Payment status changes applied.",
		}, []string{"from", "to"}),
		deliveryTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_delivery_transitions_total",
			Help: "Delivery status changes applied.",
		}, []string{"to"}),
	}
	reg.MustRegister(m.ordersPlaced, m.orderRejections, m.stockUnits, m.paymentTransitions, m.deliveryTransitions)
	return m
}

// IncOrderPlaced counts a committed order.
func (m *LedgerMetrics) IncOrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncOrderRejected counts a placement that failed with the given code.
func (m *LedgerMetrics) IncOrderRejected(code string) {
	if m == nil || m.orderRejections == nil {
		return
	}
	m.orderRejections.WithLabelValues(normalizeLabel(code)).Inc()
}

// AddStockChange records a signed ledger delta.
func (m *LedgerMetrics) AddStockChange(change int) {
	if m == nil || m.stockUnits == nil || change == 0 {
		return
	}
	direction := "in"
	if change < 0 {
		direction = "out"
		change = -change
	}
	m.stockUnits.WithLabelValues(direction).Add(float64(change))
}

// IncPaymentTransition counts an applied payment status change.
func (m *LedgerMetrics) IncPaymentTransition(from, to string) {
	if m == nil || m.paymentTransitions == nil {
		return
	}
	m.paymentTransitions.WithLabelValues(from, to).Inc()
}

// IncDeliveryTransition counts an applied delivery status change.
func (m *LedgerMetrics) IncDeliveryTransition(to string) {
	if m == nil || m.deliveryTransitions == nil {
		return
	}
	m.deliveryTransitions.WithLabelValues(to).Inc()
}
