package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/wifi-phy-simulator/core"
)

// PhyCollector bundles Prometheus metrics for the PHY layer. One collector
// serves all PHYs of a run; per-PHY recorders feed it through the frame
// trace hooks.
type PhyCollector struct {
	gatherer prometheus.Gatherer

	FramesTransmitted *prometheus.CounterVec
	FramesReceived    *prometheus.CounterVec
	FramesDropped     *prometheus.CounterVec
	BytesReceived     *prometheus.CounterVec
	AirtimeSeconds    *prometheus.CounterVec
}

// NewPhyCollector registers PHY Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPhyCollector(reg prometheus.Registerer) (*PhyCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	transmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_frames_transmitted_total",
		Help: "Total number of PPDUs put on the air, labeled by PHY.",
	}, []string{"phy"})
	transmitted, err := registerCounterVec(reg, transmitted, "phy_frames_transmitted_total")
	if err != nil {
		return nil, err
	}

	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_frames_received_total",
		Help: "Total number of PPDUs delivered with at least one good MPDU, labeled by PHY.",
	}, []string{"phy"})
	received, err = registerCounterVec(reg, received, "phy_frames_received_total")
	if err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_frames_dropped_total",
		Help: "Total number of PPDUs dropped, labeled by PHY and drop reason.",
	}, []string{"phy", "reason"})
	dropped, err = registerCounterVec(reg, dropped, "phy_frames_dropped_total")
	if err != nil {
		return nil, err
	}

	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_bytes_received_total",
		Help: "Total PSDU bytes of delivered PPDUs, labeled by PHY.",
	}, []string{"phy"})
	bytes, err = registerCounterVec(reg, bytes, "phy_bytes_received_total")
	if err != nil {
		return nil, err
	}

	airtime := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_airtime_seconds_total",
		Help: "Cumulative simulated airtime, labeled by PHY and direction (tx or rx).",
	}, []string{"phy", "direction"})
	airtime, err = registerCounterVec(reg, airtime, "phy_airtime_seconds_total")
	if err != nil {
		return nil, err
	}

	return &PhyCollector{
		gatherer:          gatherer,
		FramesTransmitted: transmitted,
		FramesReceived:    received,
		FramesDropped:     dropped,
		BytesReceived:     bytes,
		AirtimeSeconds:    airtime,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PhyCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Recorder returns a trace recorder feeding this collector under the given
// PHY label.
func (c *PhyCollector) Recorder(phy string) core.TraceRecorder {
	return &phyRecorder{c: c, phy: phy}
}

type phyRecorder struct {
	c   *PhyCollector
	phy string
}

func (r *phyRecorder) TxBegin(ppdu *core.Ppdu, _ float64) {
	r.c.FramesTransmitted.WithLabelValues(r.phy).Inc()
	r.c.AirtimeSeconds.WithLabelValues(r.phy, "tx").Add(ppdu.Duration().Seconds())
}

func (r *phyRecorder) TxEnd(*core.Ppdu) {}

func (r *phyRecorder) RxBegin(*core.Ppdu) {}

func (r *phyRecorder) RxEnd(ppdu *core.Ppdu) {
	r.c.FramesReceived.WithLabelValues(r.phy).Inc()
	r.c.BytesReceived.WithLabelValues(r.phy).Add(float64(ppdu.Psdu.Size()))
	r.c.AirtimeSeconds.WithLabelValues(r.phy, "rx").Add(ppdu.Duration().Seconds())
}

func (r *phyRecorder) RxDrop(ppdu *core.Ppdu, reason core.DropReason) {
	r.c.FramesDropped.WithLabelValues(r.phy, reason.String()).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
