package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/wifi-phy-simulator/core"
	"github.com/signalsfoundry/wifi-phy-simulator/internal/logging"
	"github.com/signalsfoundry/wifi-phy-simulator/sim"
)

// Runtime is a built scenario: a channel with its PHYs attached and all
// traffic and interference scheduled. Run the scheduler to execute it.
type Runtime struct {
	Scenario *Scenario
	Channel  *core.Channel
	Phys     map[string]*core.Phy
}

// Build instantiates the scenario on the given scheduler. The returned
// runtime's PHYs have no receive callbacks or trace recorders yet; install
// those before running.
func Build(s *Scenario, sched *sim.Scheduler, log logging.Logger) (*Runtime, error) {
	if log == nil {
		log = logging.Noop()
	}
	ch := core.NewChannel(sched, log, s.DefaultPathLossDb)
	ch.SetPropagationDelay(s.PropagationDelay.Std())

	rt := &Runtime{
		Scenario: s,
		Channel:  ch,
		Phys:     make(map[string]*core.Phy, len(s.Phys)),
	}
	for _, spec := range s.Phys {
		opCh, err := spec.Channel.toCore()
		if err != nil {
			return nil, fmt.Errorf("phy %q: %w", spec.ID, err)
		}
		phy := core.NewPhy(spec.ID, sched, log, core.PhyConfig{
			Channel:            opCh,
			MaxWidthMHz:        spec.MaxWidthMHz,
			TxPowerDbm:         spec.TxPowerDbm,
			NoiseFigureDb:      spec.NoiseFigureDb,
			CcaEdThresholdDbm:  spec.CcaEdThresholdDbm,
			RxSensitivityDbm:   spec.RxSensitivityDbm,
			ObssPdThresholdDbm: spec.ObssPdThresholdDbm,
			BssColor:           spec.BssColor,
			Seed:               spec.Seed,
		})
		ch.Attach(phy)
		rt.Phys[spec.ID] = phy
	}

	for _, pl := range s.PathLoss {
		ch.SetPathLoss(pl.A, pl.B, pl.LossDb)
	}
	for i, tr := range s.Traffic {
		if err := rt.scheduleTraffic(sched, log, tr); err != nil {
			return nil, fmt.Errorf("traffic[%d]: %w", i, err)
		}
	}
	for _, in := range s.Interferers {
		in := in
		sched.Schedule(in.Start.Std(), func() {
			bands := make([]core.Band, 0, len(in.Bands))
			for _, b := range in.Bands {
				bands = append(bands, core.Band{CenterMHz: b.CenterMHz, WidthMHz: b.WidthMHz})
			}
			ch.InjectEnergy(in.Duration.Std(), in.PowerDbm, bands)
		})
	}
	return rt, nil
}

func (rt *Runtime) scheduleTraffic(sched *sim.Scheduler, log logging.Logger, tr TrafficSpec) error {
	mode, err := tr.Mode.toCore()
	if err != nil {
		return err
	}
	preamble, err := parsePreamble(tr.Preamble)
	if err != nil {
		return err
	}
	phy := rt.Phys[tr.From]

	mpdus := tr.Mpdus
	if mpdus <= 0 {
		mpdus = 1
	}
	psdu := core.Psdu{}
	for i := 0; i < mpdus; i++ {
		psdu.Mpdus = append(psdu.Mpdus, core.Mpdu{Size: tr.SizeBytes})
	}
	nss := tr.Nss
	if nss == 0 {
		nss = 1
	}
	gi := tr.GuardInterval.Std()
	if gi == 0 {
		gi = 800 * time.Nanosecond
	}
	req := core.TxRequest{Mode: mode, Preamble: preamble, GuardInterval: gi, Nss: nss}

	count := tr.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		at := tr.Start.Std() + time.Duration(i)*tr.Interval.Std()
		sched.Schedule(at, func() {
			if _, err := phy.Send(psdu, req); err != nil {
				log.Warn(context.Background(), "scheduled send failed",
					logging.String("phy", phy.ID),
					logging.String("error", err.Error()))
			}
		})
	}
	return nil
}
