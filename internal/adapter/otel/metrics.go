package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "levelboard"

// Metrics holds all LevelBoard metric instruments.
type Metrics struct {
	LevelsDecided  metric.Int64Counter
	TriageRuns     metric.Int64Counter
	TriageHalted   metric.Int64Counter
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	StatsDuration  metric.Float64Histogram
	TriageDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.LevelsDecided, err = meter.Int64Counter("levelboard.levels.decided",
		metric.WithDescription("Number of level decisions applied"))
	if err != nil {
		return nil, err
	}

	m.TriageRuns, err = meter.Int64Counter("levelboard.triage.runs",
		metric.WithDescription("Number of bulk triage runs started"))
	if err != nil {
		return nil, err
	}

	m.TriageHalted, err = meter.Int64Counter("levelboard.triage.halted",
		metric.WithDescription("Number of bulk triage runs halted on failure"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("levelboard.stats.cache_hits",
		metric.WithDescription("Number of stats served from cache"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("levelboard.stats.cache_misses",
		metric.WithDescription("Number of stats computed from the store"))
	if err != nil {
		return nil, err
	}

	m.StatsDuration, err = meter.Float64Histogram("levelboard.stats.duration_seconds",
		metric.WithDescription("Stats computation duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TriageDuration, err = meter.Float64Histogram("levelboard.triage.duration_seconds",
		metric.WithDescription("Bulk triage run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RegisterInFlightGauge exports the run pool's current slot usage as an
// observable gauge. Call once at startup.
func RegisterInFlightGauge(src interface{ InFlight() int64 }) error {
	meter := otel.Meter(meterName)
	_, err := meter.Int64ObservableGauge("levelboard.triage.in_flight",
		metric.WithDescription("Bulk triage runs currently holding a pool slot"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(src.InFlight())
			return nil
		}))
	return err
}
