package replay

import (
	"maps"

	"github.com/plus3/framediff/frame"
)

// Frame is the content sent to the renderer for one frame time of one turn.
// Entities are ordered by id.
type Frame struct {
	Turn     int      `json:"turn" yaml:"turn"`
	Time     float64  `json:"t" yaml:"t"`
	Full     bool     `json:"full,omitempty" yaml:"full,omitempty"`
	Entities []Entity `json:"entities" yaml:"entities"`
}

// Entity carries the changed properties of one entity
type Entity struct {
	Id     uint64         `json:"id" yaml:"id"`
	Forced bool           `json:"forced,omitempty" yaml:"forced,omitempty"`
	Props  map[string]any `json:"props" yaml:"props"`
}

// FromState converts a diff state into a Frame for the given turn
func FromState(turn int, diff *frame.State) Frame {
	f := Frame{
		Turn:     turn,
		Time:     float64(diff.Time()),
		Full:     diff.IsCommitAll(),
		Entities: make([]Entity, 0, diff.Len()),
	}

	for id, bag := range diff.All() {
		props := make(map[string]any, bag.Len())
		for key, value := range bag.All() {
			props[key] = value
		}
		f.Entities = append(f.Entities, Entity{
			Id:     uint64(id),
			Forced: bag.IsForced(),
			Props:  props,
		})
	}

	return f
}

// FromDiffs converts the diffs of one advanced turn
func FromDiffs(turn int, diffs []*frame.State) []Frame {
	frames := make([]Frame, 0, len(diffs))
	for _, diff := range diffs {
		frames = append(frames, FromState(turn, diff))
	}
	return frames
}

// Player rebuilds the renderer's view of every entity by applying frames in order
type Player struct {
	entities map[uint64]map[string]any
	turn     int
	frames   int
}

// NewPlayer creates a player with no known entities
func NewPlayer() *Player {
	return &Player{entities: make(map[uint64]map[string]any)}
}

// Apply folds a frame into the known entity properties
func (p *Player) Apply(f Frame) {
	for _, entity := range f.Entities {
		props, ok := p.entities[entity.Id]
		if !ok {
			props = make(map[string]any, len(entity.Props))
			p.entities[entity.Id] = props
		}
		maps.Copy(props, entity.Props)
	}
	p.turn = f.Turn
	p.frames++
}

// Entity returns a copy of the known properties of an entity
func (p *Player) Entity(id uint64) (map[string]any, bool) {
	props, ok := p.entities[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(props), true
}

// Len returns the number of entities seen so far
func (p *Player) Len() int {
	return len(p.entities)
}

// Turn returns the turn of the last applied frame
func (p *Player) Turn() int {
	return p.turn
}

// Frames returns the number of applied frames
func (p *Player) Frames() int {
	return p.frames
}
