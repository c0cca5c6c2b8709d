package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRegistryCall("SetAppointment", "ok", 0.2)
	m.ObserveRegistryCall("SetAppointment", "registry_error", 0.1)
	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveCancellation("not_found")
	m.ObserveIdentityProbe("match")
	m.ObserveSlotCache(true)
	m.ObserveSlotCache(false)
	m.ObserveTokenRefresh("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registryCalls.WithLabelValues("SetAppointment", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotCache.WithLabelValues("miss")))
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveRegistryCall("GetToken", "ok", 0.1)
	m.ObserveBooking("booked")
	m.ObserveCancellation("cancelled")
	m.ObserveIdentityProbe("error")
	m.ObserveSlotCache(true)
	m.ObserveTokenRefresh("error")
}
