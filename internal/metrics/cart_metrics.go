package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики операций корзины и её сохранения.
type CartMetrics struct {
	// Счётчики операций
	productsAdded prometheus.Counter
	removals      *prometheus.CounterVec
	cartsCleared  prometheus.Counter

	// Сохранение снимков
	persistResults  *prometheus.CounterVec
	persistDuration prometheus.Histogram
	persistPending  prometheus.Gauge

	// Gauge для открытых сессий
	activeSessions  prometheus.Gauge
	sessionsEvicted prometheus.Counter
}

// NewCartMetrics создаёт метрики в глобальном registry.
func NewCartMetrics() *CartMetrics {
	return NewCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCartMetricsWithRegisterer создаёт метрики в указанном registry (нужно для тестов).
func NewCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		productsAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_products_added_total",
			Help: "Total number of add-to-cart operations",
		}),
		removals: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cart_remove_operations_total",
			Help: "Total number of remove-from-cart operations grouped by result",
		}, []string{"result"}),
		cartsCleared: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_cleared_total",
			Help: "Total number of clear-cart operations",
		}),
		persistResults: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cart_snapshot_persist_total",
			Help: "Total number of snapshot persistence attempts grouped by result",
		}, []string{"result"}),
		persistDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "cart_snapshot_persist_duration_seconds",
			Help:    "Duration of snapshot persistence in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		persistPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cart_snapshot_pending",
			Help: "Number of snapshots waiting to be persisted",
		}),
		activeSessions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cart_active_sessions",
			Help: "Number of cart sessions held in memory",
		}),
		sessionsEvicted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_sessions_evicted_total",
			Help: "Total number of idle cart sessions evicted from memory",
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

// Методы безопасны для nil-получателя: метрики в тестах и CLI не обязательны.

// RecordProductAdded увеличивает счётчик добавлений в корзину.
func (m *CartMetrics) RecordProductAdded() {
	if m == nil {
		return
	}
	m.productsAdded.Inc()
}

// RecordRemove учитывает удаление с результатом (removed, not_found, invalid, failed).
func (m *CartMetrics) RecordRemove(result string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(result).Inc()
}

// RecordCartCleared увеличивает счётчик очисток корзины.
func (m *CartMetrics) RecordCartCleared() {
	if m == nil {
		return
	}
	m.cartsCleared.Inc()
}

// RecordPersist учитывает попытку сохранения снимка и её длительность.
func (m *CartMetrics) RecordPersist(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.persistResults.WithLabelValues(result).Inc()
	m.persistDuration.Observe(duration.Seconds())
}

// SetPersistPending выставляет размер очереди несохранённых снимков.
func (m *CartMetrics) SetPersistPending(n int) {
	if m == nil {
		return
	}
	m.persistPending.Set(float64(n))
}

// SetActiveSessions выставляет количество сессий в памяти.
func (m *CartMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// RecordSessionsEvicted учитывает выгруженные из памяти сессии.
func (m *CartMetrics) RecordSessionsEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsEvicted.Add(float64(n))
}
