package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics mencatat metrik khusus access engine: durasi resolve dan
// jumlah timeout lock tulis.
type EngineMetrics struct {
	resolveDuration prometheus.Histogram
	lockTimeouts    prometheus.Counter
}

// NewEngineMetrics mendaftarkan metrik engine pada registerer yang diberikan.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	resolve := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aksara_access_resolve_duration_seconds",
		Help:    "Durasi resolusi permission efektif per role.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aksara_access_lock_timeouts_total",
		Help: "Jumlah operasi engine yang gagal memperoleh lock sebelum tenggat.",
	})
	reg.MustRegister(resolve, timeouts)
	return &EngineMetrics{resolveDuration: resolve, lockTimeouts: timeouts}
}

// ObserveResolve mencatat satu durasi resolve dalam detik.
func (m *EngineMetrics) ObserveResolve(seconds float64) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(seconds)
}

// LockTimeout menambah counter timeout lock.
func (m *EngineMetrics) LockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeouts.Inc()
}
