package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "medspa"

func registerer(reg prometheus.Registerer) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

// BookingMetrics counts booking operations by outcome.
type BookingMetrics struct {
	createTotal     *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	createLatency   prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "create_total",
			Help:      "Booking creation attempts by outcome",
		}, []string{"outcome"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "transition_total",
			Help:      "Appointment status transitions by target and outcome",
		}, []string{"target", "outcome"}),
		createLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "create_latency_seconds",
			Help:      "Latency of booking creation including side effects",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	registerer(reg).MustRegister(m.createTotal, m.transitionTotal, m.createLatency)
	return m
}

func (m *BookingMetrics) ObserveCreate(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.createTotal.WithLabelValues(outcome).Inc()
	m.createLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveTransition(target, outcome string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(target, outcome).Inc()
}

// NotificationMetrics tracks per-channel delivery attempts.
type NotificationMetrics struct {
	attemptTotal   *prometheus.CounterVec
	channelLatency *prometheus.HistogramVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		attemptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "attempt_total",
			Help:      "Notification attempts by channel and status",
		}, []string{"channel", "status"}),
		channelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "channel_latency_seconds",
			Help:      "Latency of a single channel dispatch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	registerer(reg).MustRegister(m.attemptTotal, m.channelLatency)
	return m
}

func (m *NotificationMetrics) ObserveAttempt(channel, status string, seconds float64) {
	if m == nil {
		return
	}
	m.attemptTotal.WithLabelValues(channel, status).Inc()
	if status != "skipped" {
		m.channelLatency.WithLabelValues(channel).Observe(seconds)
	}
}

// InventoryMetrics tracks stock consumption and alerts.
type InventoryMetrics struct {
	consumeTotal  *prometheus.CounterVec
	unitsConsumed prometheus.Counter
	lowStockTotal prometheus.Counter
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	m := &InventoryMetrics{
		consumeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "consume_total",
			Help:      "Service consumption calls by outcome",
		}, []string{"outcome"}),
		unitsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "units_consumed_total",
			Help:      "Stock units decremented by service fulfilment",
		}),
		lowStockTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "low_stock_alerts_total",
			Help:      "Items reported at or below their minimum threshold",
		}),
	}
	registerer(reg).MustRegister(m.consumeTotal, m.unitsConsumed, m.lowStockTotal)
	return m
}

func (m *InventoryMetrics) ObserveConsume(outcome string, units int) {
	if m == nil {
		return
	}
	m.consumeTotal.WithLabelValues(outcome).Inc()
	if units > 0 {
		m.unitsConsumed.Add(float64(units))
	}
}

func (m *InventoryMetrics) ObserveLowStock(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.lowStockTotal.Add(float64(count))
}
