package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated  prometheus.Counter
	ordersApproved prometheus.Counter
	ordersRejected prometheus.Counter
	ordersFailed   *prometheus.CounterVec

	// Платёжные счётчики
	paymentsRecorded  prometheus.Counter
	paymentDuplicates prometheus.Counter
	intentFailures    prometheus.Counter

	// Гистограмма времени создания заказа
	createDuration prometheus.Histogram

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для заказов, ожидающих решения менеджера
	pendingOrders prometheus.Gauge
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersApproved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_approved_total",
			Help: "Total number of orders approved by managers",
		}),
		ordersRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_rejected_total",
			Help: "Total number of orders rejected by managers",
		}),
		ordersFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_failed_total",
			Help: "Total number of order creation failures by reason",
		}, []string{"reason"}),
		paymentsRecorded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_payments_recorded_total",
			Help: "Total number of payment confirmations recorded",
		}),
		paymentDuplicates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_payment_duplicates_total",
			Help: "Total number of duplicate payment confirmations rejected",
		}),
		intentFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_payment_intent_failures_total",
			Help: "Total number of payment intent gateway failures",
		}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_order_create_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		pendingOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "marketplace_pending_orders",
			Help: "Number of orders currently awaiting a manager decision",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов и gauge ожидающих.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
	m.pendingOrders.Inc()
}

// RecordOrderApproved увеличивает счётчик подтверждённых заказов.
func (m *OrderMetrics) RecordOrderApproved() {
	m.ordersApproved.Inc()
	m.pendingOrders.Dec()
}

// RecordOrderRejected увеличивает счётчик отклонённых заказов.
func (m *OrderMetrics) RecordOrderRejected() {
	m.ordersRejected.Inc()
	m.pendingOrders.Dec()
}

// RecordOrderFailed увеличивает счётчик неудачных созданий с меткой причины.
func (m *OrderMetrics) RecordOrderFailed(reason string) {
	m.ordersFailed.WithLabelValues(reason).Inc()
}

// RecordPaymentRecorded увеличивает счётчик записанных платежей.
func (m *OrderMetrics) RecordPaymentRecorded() {
	m.paymentsRecorded.Inc()
}

// RecordPaymentDuplicate увеличивает счётчик отклонённых дублей платежа.
func (m *OrderMetrics) RecordPaymentDuplicate() {
	m.paymentDuplicates.Inc()
}

// RecordIntentFailure увеличивает счётчик ошибок платёжного шлюза.
func (m *OrderMetrics) RecordIntentFailure() {
	m.intentFailures.Inc()
}

// RecordCreateDuration записывает время создания заказа.
func (m *OrderMetrics) RecordCreateDuration(duration time.Duration) {
	m.createDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
