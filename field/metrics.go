package field

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics groups the field's Prometheus collectors. Each Field owns its registry
// so several fields can live in one process.
type metrics struct {
	registry    *prometheus.Registry
	evaluations prometheus.Counter
	contention  prometheus.Counter
	births      prometheus.Counter
	deaths      prometheus.Counter
	alive       prometheus.Gauge
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "gonwayish_cell_evaluations_total",
			Help: "Rule evaluations run with a fully locked neighborhood",
		}),
		contention: factory.NewCounter(prometheus.CounterOpts{
			Name: "gonwayish_neighborhood_contention_total",
			Help: "Iterations skipped because a neighbor lock was busy",
		}),
		births: factory.NewCounter(prometheus.CounterOpts{
			Name: "gonwayish_cell_births_total",
			Help: "Dead cells that came alive with exactly three live neighbors",
		}),
		deaths: factory.NewCounter(prometheus.CounterOpts{
			Name: "gonwayish_cell_deaths_total",
			Help: "Live cells that died of old age",
		}),
		alive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gonwayish_alive_cells",
			Help: "Cells currently alive",
		}),
	}
}
