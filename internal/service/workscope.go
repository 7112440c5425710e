package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playforge/levelboard/internal/adapter/otel"
	"github.com/playforge/levelboard/internal/adapter/ws"
	"github.com/playforge/levelboard/internal/config"
	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/workscope"
	"github.com/playforge/levelboard/internal/port/broadcast"
	"github.com/playforge/levelboard/internal/port/cache"
	"github.com/playforge/levelboard/internal/port/database"
)

// activeFilter is the server-held work-scope selection for one batch.
type activeFilter struct {
	preset string
	rng    *workscope.RangeFilter
}

// WorkscopeService owns the work-scope panel: the preset table, the active
// range filter per batch, and the cached stats snapshots pushed to clients.
type WorkscopeService struct {
	store    database.Store
	cache    cache.Cache
	hub      broadcast.Broadcaster
	presets  []workscope.Preset
	statsTTL time.Duration
	metrics  *otel.Metrics

	mu     sync.RWMutex
	active map[string]activeFilter
	gen    map[string]uint64
}

// NewWorkscopeService creates a new WorkscopeService. The preset table comes
// from config, falling back to the builtin presets when none are configured.
func NewWorkscopeService(store database.Store, statsCache cache.Cache, hub broadcast.Broadcaster, cfg config.Workscope, statsTTL time.Duration) *WorkscopeService {
	return &WorkscopeService{
		store:    store,
		cache:    statsCache,
		hub:      hub,
		presets:  presetsFromConfig(cfg),
		statsTTL: statsTTL,
		active:   make(map[string]activeFilter),
		gen:      make(map[string]uint64),
	}
}

// SetMetrics wires the metric instruments. Optional; nil disables recording.
func (s *WorkscopeService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// presetsFromConfig converts the configured preset table. A preset with Min
// and Max both zero carries no range and clears the filter when selected.
func presetsFromConfig(cfg config.Workscope) []workscope.Preset {
	if len(cfg.Presets) == 0 {
		return workscope.BuiltinPresets()
	}
	out := make([]workscope.Preset, 0, len(cfg.Presets))
	for _, p := range cfg.Presets {
		wp := workscope.Preset{ID: p.ID, Label: p.Label}
		if p.Min != 0 || p.Max != 0 {
			wp.Range = &workscope.RangeFilter{Min: p.Min, Max: p.Max}
		}
		out = append(out, wp)
	}
	return out
}

// Presets returns the preset table shown in the assignee dropdown.
func (s *WorkscopeService) Presets() []workscope.Preset {
	return s.presets
}

// Filter returns the active filter for a batch. An empty preset with a nil
// range means no filter is active and every level is in scope.
func (s *WorkscopeService) Filter(batchID string) (preset string, rng *workscope.RangeFilter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.active[batchID]
	return f.preset, f.rng
}

// SelectPreset activates a named preset for a batch. A preset without a range
// (such as "all") clears the filter. Connected clients receive a
// filter-changed event followed by a fresh stats snapshot.
func (s *WorkscopeService) SelectPreset(ctx context.Context, batchID, presetID string) (workscope.Stats, error) {
	p, ok := workscope.FindPreset(s.presets, presetID)
	if !ok {
		return workscope.Stats{}, fmt.Errorf("preset %q: %w", presetID, domain.ErrNotFound)
	}
	return s.applyFilter(ctx, batchID, p.ID, cloneRange(p.Range))
}

// SetRange activates an explicit range filter for a batch. A nil range clears
// the filter.
func (s *WorkscopeService) SetRange(ctx context.Context, batchID string, rng *workscope.RangeFilter) (workscope.Stats, error) {
	if rng != nil {
		if err := rng.Validate(); err != nil {
			return workscope.Stats{}, fmt.Errorf("%w: %s", domain.ErrValidation, err)
		}
	}
	return s.applyFilter(ctx, batchID, "", cloneRange(rng))
}

func (s *WorkscopeService) applyFilter(ctx context.Context, batchID, preset string, rng *workscope.RangeFilter) (workscope.Stats, error) {
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return workscope.Stats{}, err
	}

	s.mu.Lock()
	s.active[batchID] = activeFilter{preset: preset, rng: rng}
	s.mu.Unlock()

	s.hub.BroadcastEvent(ctx, ws.EventFilterChanged, ws.FilterChangedEvent{
		BatchID: batchID,
		Preset:  preset,
		Range:   rng,
	})

	stats, err := s.Stats(ctx, batchID, rng)
	if err != nil {
		// The filter is applied either way. Push zeros rather than leaving
		// stale numbers on screen until the next successful refresh.
		slog.Error("failed to compute stats after filter change", "batch_id", batchID, "error", err)
		s.hub.BroadcastEvent(ctx, ws.EventStatsUpdated, ws.StatsUpdatedEvent{BatchID: batchID})
		return workscope.Stats{}, nil
	}

	s.hub.BroadcastEvent(ctx, ws.EventStatsUpdated, ws.StatsUpdatedEvent{BatchID: batchID, Stats: stats})
	return stats, nil
}

// Stats returns the panel counts for a batch under the given range filter,
// nil meaning every level. Snapshots are cached briefly; any level mutation
// invalidates the batch's cached entries.
func (s *WorkscopeService) Stats(ctx context.Context, batchID string, rng *workscope.RangeFilter) (workscope.Stats, error) {
	ctx, span := otel.StartStatsSpan(ctx, batchID)
	defer span.End()
	start := time.Now()

	key := s.statsKey(batchID, rng)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("stats cache get failed", "key", key, "error", err)
	} else if ok {
		var cached workscope.Stats
		if err := json.Unmarshal(data, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.CacheHits.Add(ctx, 1)
			}
			return cached, nil
		}
		// Undecodable entry, fall through and recompute.
	}

	if s.metrics != nil {
		s.metrics.CacheMisses.Add(ctx, 1)
	}

	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return workscope.Stats{}, err
	}
	levels, err := s.store.ListLevels(ctx, batchID)
	if err != nil {
		return workscope.Stats{}, fmt.Errorf("list levels for stats: %w", err)
	}
	stats := workscope.ComputeStats(levels, rng)

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, data, s.statsTTL); err != nil {
			slog.Warn("stats cache set failed", "key", key, "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.StatsDuration.Record(ctx, time.Since(start).Seconds())
	}
	return stats, nil
}

// StatsForPreset resolves a preset by ID and returns the stats for its range.
func (s *WorkscopeService) StatsForPreset(ctx context.Context, batchID, presetID string) (workscope.Stats, error) {
	p, ok := workscope.FindPreset(s.presets, presetID)
	if !ok {
		return workscope.Stats{}, fmt.Errorf("preset %q: %w", presetID, domain.ErrNotFound)
	}
	return s.Stats(ctx, batchID, p.Range)
}

// ActiveStats returns the stats under the batch's currently active filter.
func (s *WorkscopeService) ActiveStats(ctx context.Context, batchID string) (workscope.Stats, error) {
	_, rng := s.Filter(batchID)
	return s.Stats(ctx, batchID, rng)
}

// Refresh invalidates the batch's cached stats, recomputes the snapshot for
// the active filter, and pushes it to connected clients. Mutation paths call
// this after every status change. Failures never propagate: the panel
// receives cleared stats rather than stale ones.
func (s *WorkscopeService) Refresh(ctx context.Context, batchID string) {
	s.Invalidate(batchID)

	_, rng := s.Filter(batchID)
	stats, err := s.Stats(ctx, batchID, rng)
	if err != nil {
		slog.Error("failed to refresh stats", "batch_id", batchID, "error", err)
		s.hub.BroadcastEvent(ctx, ws.EventStatsUpdated, ws.StatsUpdatedEvent{BatchID: batchID})
		return
	}

	s.hub.BroadcastEvent(ctx, ws.EventStatsUpdated, ws.StatsUpdatedEvent{BatchID: batchID, Stats: stats})
}

// Invalidate drops all cached stats snapshots for a batch. The cache port has
// no keyspace scan, so every key carries a per-batch generation number and
// invalidation bumps it; superseded entries age out by TTL.
func (s *WorkscopeService) Invalidate(batchID string) {
	s.mu.Lock()
	s.gen[batchID]++
	s.mu.Unlock()
}

func (s *WorkscopeService) statsKey(batchID string, rng *workscope.RangeFilter) string {
	s.mu.RLock()
	gen := s.gen[batchID]
	s.mu.RUnlock()
	if rng == nil {
		return fmt.Sprintf("stats:%s:%d:all", batchID, gen)
	}
	return fmt.Sprintf("stats:%s:%d:%d-%d", batchID, gen, rng.Min, rng.Max)
}

func cloneRange(r *workscope.RangeFilter) *workscope.RangeFilter {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
