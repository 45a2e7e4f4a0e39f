// Command simulator runs an 802.11 PHY-level simulation described by a YAML
// scenario file and prints per-PHY delivery statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/wifi-phy-simulator/core"
	"github.com/signalsfoundry/wifi-phy-simulator/internal/logging"
	"github.com/signalsfoundry/wifi-phy-simulator/internal/observability"
	"github.com/signalsfoundry/wifi-phy-simulator/scenario"
	"github.com/signalsfoundry/wifi-phy-simulator/sim"
)

type phyStats struct {
	delivered int
	failed    int
	bytes     uint64
	snrDb     []float64
}

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "path to the scenario YAML file")
		duration     = flag.Duration("duration", 0, "override the scenario duration")
		metricsAddr  = flag.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	)
	flag.Parse()

	log := logging.NewFromEnv()
	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: simulator -scenario <file.yaml> [-duration 10ms]")
		os.Exit(2)
	}
	if err := run(log, *scenarioPath, *duration, *metricsAddr); err != nil {
		log.Error(context.Background(), "run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(log logging.Logger, scenarioPath string, durationOverride time.Duration, metricsAddr string) error {
	ctx := logging.ContextWithRunID(context.Background(), uuid.NewString())
	ctx, log = logging.WithRunLogger(ctx, log)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	s, err := scenario.LoadFile(scenarioPath)
	if err != nil {
		return err
	}
	runFor := s.Duration.Std()
	if durationOverride > 0 {
		runFor = durationOverride
	}
	if runFor <= 0 {
		return fmt.Errorf("scenario %q has no duration; pass -duration", s.Name)
	}

	phyMetrics, err := observability.NewPhyCollector(nil)
	if err != nil {
		return fmt.Errorf("register phy metrics: %w", err)
	}
	simMetrics, err := observability.NewSimulationCollector(nil)
	if err != nil {
		return fmt.Errorf("register simulation metrics: %w", err)
	}
	if metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(metricsAddr, phyMetrics.Handler()); err != nil {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "serving metrics", logging.String("addr", metricsAddr))
	}

	sched := sim.NewScheduler()
	rt, err := scenario.Build(s, sched, log)
	if err != nil {
		return err
	}

	stats := make(map[string]*phyStats, len(rt.Phys))
	for id, phy := range rt.Phys {
		id := id
		st := &phyStats{}
		stats[id] = st
		phy.SetTraceRecorder(phyMetrics.Recorder(id))
		phy.SetReceiveCallbacks(
			func(ppdu *core.Ppdu, info core.RxSignalInfo, statuses []bool) {
				for _, ok := range statuses {
					if ok {
						st.delivered++
					} else {
						st.failed++
					}
				}
				st.bytes += uint64(ppdu.Psdu.Size())
				st.snrDb = append(st.snrDb, core.RatioToDb(info.Snr))
			},
			func(_ *core.Ppdu, _ float64) { st.failed++ },
		)
	}

	tracer := otel.Tracer("simulator")
	ctx, span := tracer.Start(ctx, "simulation-run")
	span.SetAttributes(
		attribute.String("scenario", s.Name),
		attribute.Int64("duration_us", runFor.Microseconds()),
		attribute.Int("phys", len(rt.Phys)),
	)

	log.Info(ctx, "starting run",
		logging.String("scenario", s.Name),
		logging.Any("duration", runFor))
	wallStart := time.Now()
	sched.RunUntil(runFor)
	wall := time.Since(wallStart)
	span.End()

	simMetrics.SetSimulatedTime(sched.Now())
	simMetrics.SetPendingEvents(sched.Pending())
	simMetrics.ObserveRun(wall)

	printSummary(s.Name, runFor, wall, stats)
	return nil
}

func printSummary(name string, simulated, wall time.Duration, stats map[string]*phyStats) {
	fmt.Printf("scenario %q: simulated %s in %s\n", name, simulated, wall)

	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := stats[id]
		fmt.Printf("  %-12s mpdus ok=%d failed=%d bytes=%d", id, st.delivered, st.failed, st.bytes)
		if len(st.snrDb) > 0 {
			sorted := append([]float64(nil), st.snrDb...)
			sort.Float64s(sorted)
			mean := stat.Mean(sorted, nil)
			sd := stat.StdDev(sorted, nil)
			median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
			fmt.Printf("  snr_db mean=%.1f sd=%.1f median=%.1f", mean, sd, median)
		}
		fmt.Println()
	}
}
