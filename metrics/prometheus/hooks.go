// Package prometheus reports service cache events as Prometheus counters.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-repository-service/cache"
)

var _ cache.Hooks = (*Hooks)(nil)

// Hooks implements cache.Hooks. Keys are never used as label values.
type Hooks struct {
	lookups  *prometheus.CounterVec
	repairs  prometheus.Counter
	failures *prometheus.CounterVec
}

// NewHooks registers the counters on reg. namespace may be empty.
func NewHooks(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	h := &Hooks{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "repository_cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by result and by whether a reference was followed.",
			},
			[]string{"result", "via"},
		),
		repairs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "repository_cache",
				Name:      "reference_repairs_total",
				Help:      "Identity entries rewritten from the store while resolving a reference.",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "repository_cache",
				Name:      "errors_total",
				Help:      "Cache failures swallowed by the service, by operation.",
			},
			[]string{"op"},
		),
	}

	for _, c := range []prometheus.Collector{h.lookups, h.repairs, h.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Hit(_ string, viaRef bool) {
	via := "direct"
	if viaRef {
		via = "reference"
	}
	h.lookups.WithLabelValues("hit", via).Inc()
}

func (h *Hooks) Miss(string) {
	h.lookups.WithLabelValues("miss", "").Inc()
}

func (h *Hooks) RefRepaired(string, string) {
	h.repairs.Inc()
}

func (h *Hooks) Error(op, _ string, _ error) {
	h.failures.WithLabelValues(op).Inc()
}
