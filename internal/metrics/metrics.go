// Package metrics holds the pipeline counters. Each process owns one
// Collector with its own registry.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pable/go-cs-demostats/internal/decoder"
)

type Collector struct {
	registry *prometheus.Registry

	DemoCounter    *prometheus.CounterVec
	EventCounter   *prometheus.CounterVec
	WarningCounter *prometheus.CounterVec
	RoundCounter   prometheus.Counter
	BytesCounter   prometheus.Counter
	ParseDuration  *prometheus.HistogramVec
}

func New() *Collector {
	collector := &Collector{
		registry: prometheus.NewRegistry(),

		DemoCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "csdemostats_demos_total", Help: "Demos processed"},
			[]string{"engine", "result"}),

		EventCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "csdemostats_events_total", Help: "Decoded demo events"},
			[]string{"kind"}),

		WarningCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "csdemostats_warnings_total", Help: "Recoverable decode warnings"},
			[]string{"type"}),

		RoundCounter: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "csdemostats_rounds_total", Help: "Rounds recorded"}),

		BytesCounter: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "csdemostats_demo_bytes_total", Help: "Decompressed demo bytes read"}),

		ParseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "csdemostats_parse_seconds",
				Help:    "Wall time spent on one demo",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"engine"}),
	}

	collector.registry.MustRegister(
		collector.DemoCounter,
		collector.EventCounter,
		collector.WarningCounter,
		collector.RoundCounter,
		collector.BytesCounter,
		collector.ParseDuration,
	)

	return collector
}

// Warning counts a recoverable decoder warning by its type.
func (c *Collector) Warning(err error) {
	var (
		unknown    *decoder.UnknownEventWarning
		unresolved *decoder.UnresolvedPlayerWarning
	)
	switch {
	case errors.As(err, &unknown):
		c.WarningCounter.With(prometheus.Labels{"type": "unknown_event"}).Inc()
	case errors.As(err, &unresolved):
		c.WarningCounter.With(prometheus.Labels{"type": "unresolved_player"}).Inc()
	default:
		c.WarningCounter.With(prometheus.Labels{"type": "other"}).Inc()
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
