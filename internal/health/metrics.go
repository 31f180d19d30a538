package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// collector exports monitoring counters. Registration happens once, in the
// module's lifecycle hook.
type collector struct {
	checksTotal    *prometheus.CounterVec
	rollbacksTotal prometheus.Counter
	probeDuration  prometheus.Histogram
}

func newCollector() *collector {
	return &collector{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pilotcd",
			Subsystem: "health",
			Name:      "checks_total",
			Help:      "Health checks performed, by resulting status.",
		}, []string{"status"}),
		rollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pilotcd",
			Subsystem: "health",
			Name:      "rollbacks_total",
			Help:      "Automatic rollbacks triggered by sustained unhealthiness.",
		}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pilotcd",
			Subsystem: "health",
			Name:      "probe_duration_seconds",
			Help:      "Response time of health probes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (c *collector) register(registerer prometheus.Registerer) error {
	for _, metric := range []prometheus.Collector{c.checksTotal, c.rollbacksTotal, c.probeDuration} {
		if err := registerer.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) observe(result CheckResult) {
	c.checksTotal.WithLabelValues(string(result.Status)).Inc()
	if result.ResponseTime > 0 {
		c.probeDuration.Observe(result.ResponseTime.Seconds())
	}
}
