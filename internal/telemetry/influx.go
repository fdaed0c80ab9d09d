// Package telemetry ships actor positions to InfluxDB for after-action
// analysis. The recorder is an optional engine adapter: when InfluxDB
// is disabled or unreachable the simulator runs without it.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/actor-motion-sim/engine"
	"github.com/signalsfoundry/actor-motion-sim/internal/logging"
)

// ErrDisabled indicates influx.enabled is false in configuration.
var ErrDisabled = errors.New("influx telemetry disabled")

// Config holds InfluxDB connection settings.
type Config struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

// ConfigFromViper reads influx.* keys from the loaded configuration.
func ConfigFromViper(v *viper.Viper) Config {
	return Config{
		Enabled: v.GetBool("influx.enabled"),
		URL:     v.GetString("influx.url"),
		Token:   v.GetString("influx.token"),
		Org:     v.GetString("influx.org"),
		Bucket:  v.GetString("influx.bucket"),
	}
}

// Recorder writes one point per actor per frame using the client's
// async write API, so a slow InfluxDB never stalls the tick loop.
type Recorder struct {
	client influxdb2.Client
	writer influxdb2api.WriteAPI
	log    logging.Logger
	simID  string
}

// NewRecorder connects to InfluxDB and verifies it is reachable.
func NewRecorder(ctx context.Context, cfg Config, log logging.Logger) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if log == nil {
		log = logging.Noop()
	}

	url := cfg.URL
	if url == "" {
		url = "http://localhost:8086"
	}
	client := influxdb2.NewClientWithOptions(url, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		return nil, fmt.Errorf("influxdb unreachable at %s: %w", url, err)
	}

	r := &Recorder{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		log:    log,
	}
	go func() {
		for writeErr := range r.writer.Errors() {
			log.Warn(context.Background(), "influx write failed",
				logging.String("error", writeErr.Error()))
		}
	}()

	log.Info(ctx, "influx telemetry enabled",
		logging.String("url", url),
		logging.String("bucket", cfg.Bucket))
	return r, nil
}

// SetSimulation tags subsequent points with the simulation ID.
func (r *Recorder) SetSimulation(simID string) {
	r.simID = simID
}

// UpdateActor implements engine.Adapter.
func (r *Recorder) UpdateActor(actorID string, st engine.AnimationState) {
	r.writer.WritePoint(positionPoint(r.simID, actorID, st, time.Now()))
}

// Close flushes buffered points and releases the client.
func (r *Recorder) Close() {
	r.writer.Flush()
	r.client.Close()
}

func positionPoint(simID, actorID string, st engine.AnimationState, at time.Time) *influxdb2write.Point {
	p := influxdb2write.NewPointWithMeasurement("actor_position").
		AddTag("actor_id", actorID).
		AddField("longitude", st.Position.Lng).
		AddField("latitude", st.Position.Lat).
		AddField("heading", st.Heading).
		AddField("progress", st.Progress).
		AddField("segment_index", st.SegmentIndex).
		SetTime(at)
	if simID != "" {
		p.AddTag("simulation_id", simID)
	}
	return p
}
