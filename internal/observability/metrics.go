package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the motion engine and provides
// a ready-to-use /metrics handler. It implements the engine's
// MetricsRecorder interface so the tick loop can drive it directly.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Actors        prometheus.Gauge
	ActorsArrived prometheus.Gauge
	Ticks         prometheus.Counter
	ActorFaults   *prometheus.CounterVec
	StepDuration  prometheus.Histogram
}

// NewSimCollector registers engine Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	actors, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_actors",
		Help: "Current number of actors in the loaded simulation.",
	}), "sim_actors")
	if err != nil {
		return nil, err
	}
	arrived, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_actors_arrived",
		Help: "Number of actors that have reached their final destination.",
	}), "sim_actors_arrived")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_ticks_total",
		Help: "Total number of animation frames stepped by the engine.",
	}), "engine_ticks_total")
	if err != nil {
		return nil, err
	}

	faults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_actor_faults_total",
		Help: "Actor animation faults, labeled by reason.",
	}, []string{"reason"})
	faults, err = registerCounterVec(reg, faults, "engine_actor_faults_total")
	if err != nil {
		return nil, err
	}

	stepDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_step_duration_seconds",
		Help:    "Wall-clock duration of a single engine step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "engine_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		Actors:        actors,
		ActorsArrived: arrived,
		Ticks:         ticks,
		ActorFaults:   faults,
		StepDuration:  stepDuration,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetSimulationCounts updates the actor population gauges.
func (c *SimCollector) SetSimulationCounts(actors, arrived int) {
	if c == nil {
		return
	}
	if c.Actors != nil {
		c.Actors.Set(float64(actors))
	}
	if c.ActorsArrived != nil {
		c.ActorsArrived.Set(float64(arrived))
	}
}

// IncTicks counts one stepped frame.
func (c *SimCollector) IncTicks() {
	if c == nil || c.Ticks == nil {
		return
	}
	c.Ticks.Inc()
}

// IncActorFault counts an actor animation fault by reason.
func (c *SimCollector) IncActorFault(reason string) {
	if c == nil || c.ActorFaults == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	c.ActorFaults.WithLabelValues(reason).Inc()
}

// ObserveStep records the wall-clock cost of one engine step.
func (c *SimCollector) ObserveStep(d time.Duration) {
	if c == nil || c.StepDuration == nil {
		return
	}
	c.StepDuration.Observe(d.Seconds())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
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
