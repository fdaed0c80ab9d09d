package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/actor-motion-sim/engine"
	"github.com/signalsfoundry/actor-motion-sim/internal/logging"
	"github.com/signalsfoundry/actor-motion-sim/internal/observability"
	sim "github.com/signalsfoundry/actor-motion-sim/internal/sim/state"
	"github.com/signalsfoundry/actor-motion-sim/internal/telemetry"
	"github.com/signalsfoundry/actor-motion-sim/model"
	"github.com/signalsfoundry/actor-motion-sim/playback"
	"github.com/signalsfoundry/actor-motion-sim/route"
)

const tracerName = "github.com/signalsfoundry/actor-motion-sim/cmd/simulator"

func main() {
	scenarioPath := flag.String("scenario", "configs/simulation.json", "Path to the scenario JSON document")
	configPath := flag.String("config", "", "Optional path to a simulator config file (influx settings)")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	frameInterval := flag.Duration("frame-interval", 16*time.Millisecond, "Animation tick interval")
	speed := flag.Float64("speed", 1.0, "Initial playback speed multiplier")
	duration := flag.Duration("duration", 0, "Stop after this wall-clock duration (0 runs until completion or interrupt)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	routes := route.NewModel()
	clock := playback.NewClock()
	eng := engine.NewEngine(routes, clock,
		engine.WithLogger(log),
		engine.WithMetricsRecorder(collector),
	)
	state := sim.NewSimulationState(routes, log,
		sim.WithEngine(eng),
		sim.WithMetricsRecorder(collector),
	)

	scenario := loadScenario(log, *scenarioPath)
	if err := state.LoadSimulation(ctx, scenario); err != nil {
		log.Error(ctx, "failed to load simulation", logging.String("error", err.Error()))
		os.Exit(1)
	}

	adapters := []engine.Adapter{engine.NewGlobeAdapter(0)}
	if recorder := newTelemetryRecorder(ctx, log, *configPath); recorder != nil {
		recorder.SetSimulation(scenario.ID)
		adapters = append(adapters, recorder)
		defer recorder.Close()
	}

	loop := engine.NewLoop(eng, clock,
		engine.WithFrameInterval(*frameInterval),
		engine.WithAdapters(adapters...),
		engine.WithLoopLogger(log),
	)
	defer loop.Close()

	if *speed != 1.0 {
		if err := clock.SetSpeed(*speed); err != nil {
			log.Error(ctx, "invalid playback speed", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Completion pauses the clock; surface that as run termination.
	finished := make(chan struct{})
	var finishOnce sync.Once
	unsubscribe := clock.Subscribe(func(st playback.State) {
		if st.Paused && !st.Playing && !st.Reset {
			finishOnce.Do(func() { close(finished) })
		}
	})
	defer unsubscribe()

	log.Info(ctx, "starting playback",
		logging.String("scenario", *scenarioPath),
		logging.Int("actors", len(scenario.Actors)),
		logging.Float64("speed", *speed),
	)
	_, runSpan := otel.Tracer(tracerName).Start(ctx, "simulation.run",
		trace.WithAttributes(
			attribute.String("simulation.id", scenario.ID),
			attribute.Int("simulation.actors", len(scenario.Actors)),
			attribute.Float64("playback.speed", *speed),
		))
	clock.Play()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var timeout <-chan time.Time
	if *duration > 0 {
		timer := time.NewTimer(*duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-finished:
		log.Info(ctx, "all actors arrived, playback paused")
		runSpan.SetAttributes(attribute.String("run.outcome", "completed"))
	case <-timeout:
		log.Info(ctx, "run duration elapsed")
		runSpan.SetAttributes(attribute.String("run.outcome", "duration_elapsed"))
		clock.Pause()
	case <-stopCtx.Done():
		log.Info(ctx, "interrupt received, shutting down")
		runSpan.SetAttributes(attribute.String("run.outcome", "interrupted"))
		clock.Pause()
	}
	runSpan.End()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func loadScenario(log logging.Logger, path string) *model.Simulation {
	f, err := os.Open(path)
	if err != nil {
		log.Error(context.Background(), "failed to open scenario", logging.String("path", path), logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	scenario, err := sim.LoadSimulationJSON(f)
	if err != nil {
		log.Error(context.Background(), "failed to parse scenario", logging.String("path", path), logging.String("error", err.Error()))
		os.Exit(1)
	}
	return scenario
}

// newTelemetryRecorder wires the optional InfluxDB adapter. A missing
// config file or disabled telemetry is not an error.
func newTelemetryRecorder(ctx context.Context, log logging.Logger, configPath string) *telemetry.Recorder {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Warn(ctx, "failed to read simulator config", logging.String("path", configPath), logging.String("error", err.Error()))
			return nil
		}
	}

	recorder, err := telemetry.NewRecorder(ctx, telemetry.ConfigFromViper(v), log)
	if err != nil {
		if !errors.Is(err, telemetry.ErrDisabled) {
			log.Warn(ctx, "influx telemetry unavailable", logging.String("error", err.Error()))
		}
		return nil
	}
	return recorder
}
