package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for registry traffic and
// booking flows. All observers are nil-safe.
type SchedulingMetrics struct {
	registryCalls   *prometheus.CounterVec
	registryLatency *prometheus.HistogramVec
	bookings        *prometheus.CounterVec
	cancellations   *prometheus.CounterVec
	identityProbes  *prometheus.CounterVec
	slotCache       *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		registryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Subsystem: "registry",
			Name:      "calls_total",
			Help:      "Registry RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
		registryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduling",
			Subsystem: "registry",
			Name:      "call_duration_seconds",
			Help:      "Latency of registry RPC calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Subsystem: "appointments",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome",
		}, []string{"outcome"}),
		identityProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Subsystem: "identity",
			Name:      "phone_probes_total",
			Help:      "Patient search probes per phone candidate by outcome",
		}, []string{"outcome"}),
		slotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Subsystem: "slots",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Subsystem: "registry",
			Name:      "token_refreshes_total",
			Help:      "Session token refreshes by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.registryCalls,
		m.registryLatency,
		m.bookings,
		m.cancellations,
		m.identityProbes,
		m.slotCache,
		m.tokenRefreshes,
	)
	return m
}

func (m *SchedulingMetrics) ObserveRegistryCall(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.registryCalls.WithLabelValues(method, outcome).Inc()
	m.registryLatency.WithLabelValues(method).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveIdentityProbe(outcome string) {
	if m == nil {
		return
	}
	m.identityProbes.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.slotCache.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveTokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}
