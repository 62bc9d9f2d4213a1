package frame

import (
	"iter"
	"slices"
	"strconv"

	"github.com/kamstrup/intmap"
)

// FrameTime orders the states of one turn. Commits use values in [0, 1].
type FrameTime float64

func (t FrameTime) String() string {
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}

// State holds the committed property bag of every entity touched at one frame time
type State struct {
	time      FrameTime
	bags      *intmap.Map[EntityId, *Bag]
	commitAll bool
}

// NewState creates an empty state for the given frame time
func NewState(t FrameTime) *State {
	return &State{
		time: t,
		bags: intmap.New[EntityId, *Bag](64),
	}
}

// Time returns the frame time label of the state
func (s *State) Time() FrameTime {
	return s.time
}

// SetCommitAll marks the state as a full snapshot sent independently of the diff
func (s *State) SetCommitAll(commitAll bool) {
	s.commitAll = commitAll
}

// IsCommitAll reports whether the state was marked as a full snapshot
func (s *State) IsCommitAll() bool {
	return s.commitAll
}

// Len returns the number of entities with a committed bag
func (s *State) Len() int {
	return s.bags.Len()
}

// Bag returns the committed bag of an entity
func (s *State) Bag(id EntityId) (*Bag, bool) {
	return s.bags.Get(id)
}

// Has reports whether the entity has a committed bag in this state
func (s *State) Has(id EntityId) bool {
	return s.bags.Has(id)
}

// Ids returns the ids of committed entities in ascending order
func (s *State) Ids() []EntityId {
	return slices.Sorted(s.bags.Keys())
}

// All iterates over committed bags in ascending entity id order
func (s *State) All() iter.Seq2[EntityId, *Bag] {
	return func(yield func(EntityId, *Bag) bool) {
		for _, id := range s.Ids() {
			bag, _ := s.bags.Get(id)
			if !yield(id, bag) {
				return
			}
		}
	}
}

// FlushMissing commits the pending writes of every entity that has no bag in
// this state yet. Entities already present are left untouched, pending writes included.
func (s *State) FlushMissing(entities []*Entity) {
	for _, entity := range entities {
		if s.bags.Has(entity.id) {
			continue
		}
		s.bags.Put(entity.id, entity.TakePendingAndReset())
	}
}

// FlushEntity moves the entity's pending writes into this state. With force set the
// pending bag is marked forced, so an entity flushed here for the first time is
// emitted by the next diff even if none of its values changed. When the entity
// already has a committed bag only the entries are merged into it.
func (s *State) FlushEntity(entity *Entity, force bool) {
	if entity == nil {
		panic("cannot flush a nil entity")
	}

	pending := entity.TakePendingAndReset()
	if force {
		pending.Force()
	}
	s.commit(entity.id, pending)
}

// UpdateAll folds the committed bags of a later state into s. Properties that
// next does not mention keep their current value.
func (s *State) UpdateAll(next *State) {
	for id, bag := range next.bags.All() {
		committed, ok := s.bags.Get(id)
		if !ok {
			committed = NewBag()
			s.bags.Put(id, committed)
		}
		committed.Merge(bag)
	}
}

// DiffFrom compares s against a previous state using the commit-all flag of s
func (s *State) DiffFrom(previous *State) *State {
	return Diff(s, previous, s.commitAll)
}

func (s *State) commit(id EntityId, bag *Bag) {
	committed, ok := s.bags.Get(id)
	if !ok {
		s.bags.Put(id, bag)
		return
	}
	committed.Merge(bag)
}

// Diff builds a state, labelled with current's time, holding for each entity of
// current only the properties that differ from previous. An entity is kept when
// its diff is not empty, or when it is forced and commitAll is off.
// A nil previous is treated as an empty state.
func Diff(current, previous *State, commitAll bool) *State {
	diff := NewState(current.time)
	diff.commitAll = commitAll

	for id, bag := range current.bags.All() {
		var prevBag *Bag
		if previous != nil {
			prevBag, _ = previous.bags.Get(id)
		}

		entityDiff := bag.DiffFrom(prevBag)
		if (entityDiff.IsForced() && !commitAll) || !entityDiff.IsEmpty() {
			diff.bags.Put(id, entityDiff)
		}
	}

	return diff
}
