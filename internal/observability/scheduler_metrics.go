package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimulationCollector exposes run-level metrics of the event scheduler.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	SimulatedSeconds prometheus.Gauge
	EventsPending    prometheus.Gauge
	RunDuration      prometheus.Histogram
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	simTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_simulated_seconds",
		Help: "Current simulation clock position in seconds.",
	})
	simTime, err := registerGauge(reg, simTime, "sim_simulated_seconds")
	if err != nil {
		return nil, err
	}

	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_events_pending",
		Help: "Number of scheduled events that have not yet run.",
	})
	pending, err = registerGauge(reg, pending, "sim_events_pending")
	if err != nil {
		return nil, err
	}

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_run_wall_seconds",
		Help:    "Wall-clock duration of completed simulation runs.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	runDuration, err = registerHistogram(reg, runDuration, "sim_run_wall_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:         gatherer,
		SimulatedSeconds: simTime,
		EventsPending:    pending,
		RunDuration:      runDuration,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimulationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SetSimulatedTime updates the simulation clock gauge.
func (c *SimulationCollector) SetSimulatedTime(d time.Duration) {
	if c == nil || c.SimulatedSeconds == nil {
		return
	}
	c.SimulatedSeconds.Set(d.Seconds())
}

// SetPendingEvents updates the pending event gauge.
func (c *SimulationCollector) SetPendingEvents(count int) {
	if c == nil || c.EventsPending == nil {
		return
	}
	c.EventsPending.Set(float64(count))
}

// ObserveRun records the wall-clock time a run took.
func (c *SimulationCollector) ObserveRun(d time.Duration) {
	if c == nil || c.RunDuration == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
