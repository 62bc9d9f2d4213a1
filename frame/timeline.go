package frame

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
)

var (
	// ErrInvalidFrameTime is returned when a commit targets a time outside [0, 1]
	ErrInvalidFrameTime = errors.New("frame time must be within [0, 1]")
	// ErrUnknownEntity is returned when a commit names an entity the registry does not hold
	ErrUnknownEntity = errors.New("unknown entity")
)

// TurnEnd is the frame time at which untouched entities are committed implicitly
const TurnEnd FrameTime = 1

// Timeline collects the states committed during a turn and, when the turn
// advances, turns them into diffs against what the consumer already holds.
type Timeline struct {
	registry  *Registry
	aggregate *State
	states    map[FrameTime]*State
	turn      int
	log       *zap.Logger
}

// TimelineOption configures a Timeline
type TimelineOption func(*Timeline)

// WithLogger sets the logger used to report turn advances
func WithLogger(log *zap.Logger) TimelineOption {
	return func(tl *Timeline) {
		tl.log = log
	}
}

// NewTimeline creates a timeline over the entities of registry
func NewTimeline(registry *Registry, opts ...TimelineOption) *Timeline {
	tl := &Timeline{
		registry:  registry,
		aggregate: NewState(0),
		states:    make(map[FrameTime]*State),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(tl)
	}
	return tl
}

// Registry returns the registry whose entities the timeline commits
func (tl *Timeline) Registry() *Registry {
	return tl.registry
}

// Turn returns the number of turns advanced so far
func (tl *Timeline) Turn() int {
	return tl.turn
}

// Aggregate returns the state as known by the consumer after the last advance
func (tl *Timeline) Aggregate() *State {
	return tl.aggregate
}

// State returns the state committed at t during the current turn
func (tl *Timeline) State(t FrameTime) (*State, bool) {
	state, ok := tl.states[t]
	return state, ok
}

// CommitEntity flushes the pending writes of the given entities into the state at t
func (tl *Timeline) CommitEntity(t FrameTime, force bool, ids ...EntityId) error {
	if err := validateFrameTime(t); err != nil {
		return err
	}

	entities := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		entity, ok := tl.registry.Get(id)
		if !ok {
			return fmt.Errorf("commit entity %d: %w", id, ErrUnknownEntity)
		}
		entities = append(entities, entity)
	}

	state := tl.stateAt(t)
	for _, entity := range entities {
		state.FlushEntity(entity, force)
	}
	return nil
}

// CommitWorld flushes every registered entity at t and marks the state as a full snapshot
func (tl *Timeline) CommitWorld(t FrameTime) error {
	if err := validateFrameTime(t); err != nil {
		return err
	}

	state := tl.stateAt(t)
	for _, entity := range tl.registry.Entities() {
		state.FlushEntity(entity, false)
	}
	state.SetCommitAll(true)
	return nil
}

// Advance closes the current turn. Entities not committed at TurnEnd get their
// pending writes committed there, then every state of the turn is diffed, in
// time order, against the aggregate and folded into it. The diffs are returned
// in the same order.
func (tl *Timeline) Advance() []*State {
	tl.stateAt(TurnEnd).FlushMissing(tl.registry.Entities())

	times := make([]FrameTime, 0, len(tl.states))
	for t := range tl.states {
		times = append(times, t)
	}
	slices.Sort(times)

	diffs := make([]*State, 0, len(times))
	emitted := 0
	for _, t := range times {
		state := tl.states[t]
		diff := state.DiffFrom(tl.aggregate)
		tl.aggregate.UpdateAll(state)

		emitted += diff.Len()
		diffs = append(diffs, diff)
	}

	clear(tl.states)
	tl.turn++

	tl.log.Debug("turn advanced",
		zap.Int("turn", tl.turn),
		zap.Int("frames", len(diffs)),
		zap.Int("entities", emitted),
	)
	return diffs
}

func (tl *Timeline) stateAt(t FrameTime) *State {
	state, ok := tl.states[t]
	if !ok {
		state = NewState(t)
		tl.states[t] = state
	}
	return state
}

func validateFrameTime(t FrameTime) error {
	if math.IsNaN(float64(t)) || t < 0 || t > 1 {
		return fmt.Errorf("commit at %s: %w", t, ErrInvalidFrameTime)
	}
	return nil
}
