package frame

import (
	"iter"
	"maps"
	"math"
	"reflect"
	"slices"
)

// Bag is a set of property values keyed by property name. A Bag is either the
// pending writes of an entity or the committed snapshot of one entity in a State.
type Bag struct {
	values map[string]any
	forced bool
}

// NewBag creates an empty, unforced bag
func NewBag() *Bag {
	return &Bag{values: make(map[string]any)}
}

// Put inserts or overwrites a property value
func (b *Bag) Put(key string, value any) {
	b.values[key] = value
}

// Get returns the value stored for key
func (b *Bag) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of properties in the bag
func (b *Bag) Len() int {
	return len(b.values)
}

// IsEmpty reports whether the bag holds no properties. The forced flag is not considered.
func (b *Bag) IsEmpty() bool {
	return len(b.values) == 0
}

// Force marks the bag so that its entity is emitted even when nothing changed.
// There is no way to clear the flag on the same bag.
func (b *Bag) Force() {
	b.forced = true
}

// IsForced reports whether Force has been called on the bag
func (b *Bag) IsForced() bool {
	return b.forced
}

// Keys returns the property names in sorted order
func (b *Bag) Keys() []string {
	return slices.Sorted(maps.Keys(b.values))
}

// All iterates over the properties in sorted key order
func (b *Bag) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, key := range b.Keys() {
			if !yield(key, b.values[key]) {
				return
			}
		}
	}
}

// Merge copies every entry of other into b, overwriting existing keys.
// Keys of b that other does not mention are kept. The forced flag is not copied.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for key, value := range other.values {
		b.values[key] = value
	}
}

// Clone returns a copy of the bag that shares no map with the original
func (b *Bag) Clone() *Bag {
	return &Bag{
		values: maps.Clone(b.values),
		forced: b.forced,
	}
}

// DiffFrom returns a bag holding only the entries of b that are missing from
// previous or hold a different value there. A nil previous means the entity has
// no recorded state, so every entry is kept. The result inherits b's forced flag.
func (b *Bag) DiffFrom(previous *Bag) *Bag {
	diff := &Bag{
		values: make(map[string]any, len(b.values)),
		forced: b.forced,
	}

	for key, value := range b.values {
		if previous != nil {
			if old, ok := previous.values[key]; ok && valuesEqual(old, value) {
				continue
			}
		}
		diff.values[key] = value
	}

	return diff
}

// valuesEqual compares two property values. Comparable values use ==, anything
// else (slices, maps) falls back to reflect.DeepEqual. Two NaNs of the same
// float type are equal.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	switch x := a.(type) {
	case float64:
		if y := b.(float64); math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
	case float32:
		if y := b.(float32); x != x && y != y {
			return true
		}
	}
	if reflect.ValueOf(a).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
