package frame

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Turns           int64
	FramesEmitted   int64
	EntitiesEmitted int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// AdvanceFunc receives the diffs produced when a turn advances.
type AdvanceFunc func(turn int, diffs []*State)

// Scheduler runs systems once per turn, flushes their commands into the timeline
// and advances it.
type Scheduler struct {
	timeline    *Timeline
	systems     []System
	systemStats []*systemStatsInternal
	onAdvance   []AdvanceFunc
	log         *zap.Logger

	turns           int64
	framesEmitted   int64
	entitiesEmitted int64
}

// NewScheduler creates a new scheduler for the given timeline.
func NewScheduler(timeline *Timeline) *Scheduler {
	return &Scheduler{
		timeline: timeline,
		systems:  make([]System, 0),
		log:      timeline.log,
	}
}

// Register adds a system to the scheduler. Systems execute in registration order.
func (s *Scheduler) Register(system System) {
	s.systems = append(s.systems, system)

	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}

	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        systemType.Name(),
		minDuration: time.Duration(1<<63 - 1),
	})
}

// OnAdvance registers a callback invoked with the diffs of every advanced turn.
func (s *Scheduler) OnAdvance(fn AdvanceFunc) {
	s.onAdvance = append(s.onAdvance, fn)
}

// Once executes all registered systems once with the given delta time, applies
// their commands and advances the timeline. Command failures do not stop the
// turn from advancing; they are returned alongside the diffs.
func (s *Scheduler) Once(dt float64) ([]*State, error) {
	frame := newUpdateFrame(s.timeline.Turn(), dt, s.timeline.Registry())

	for i, system := range s.systems {
		start := time.Now()
		system.Execute(frame)
		duration := time.Since(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	err := frame.Commands.Flush(s.timeline)
	if err != nil {
		s.log.Warn("commands failed", zap.Int("turn", frame.Turn), zap.Error(err))
	}

	diffs := s.timeline.Advance()

	s.turns++
	s.framesEmitted += int64(len(diffs))
	for _, diff := range diffs {
		s.entitiesEmitted += int64(diff.Len())
	}

	for _, fn := range s.onAdvance {
		fn(frame.Turn, diffs)
	}

	return diffs, err
}

// Run executes turns repeatedly at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if _, err := s.Once(dt); err != nil {
				return err
			}
		}
	}
}

// GetStats returns statistics about system execution and emitted diffs.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount:     len(s.systems),
		Turns:           s.turns,
		FramesEmitted:   s.framesEmitted,
		EntitiesEmitted: s.entitiesEmitted,
		Systems:         make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
