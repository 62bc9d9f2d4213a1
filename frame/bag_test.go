package frame_test

import (
	"math"
	"testing"

	"github.com/plus3/framediff/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bagOf(kv ...any) *frame.Bag {
	bag := frame.NewBag()
	for i := 0; i+1 < len(kv); i += 2 {
		bag.Put(kv[i].(string), kv[i+1])
	}
	return bag
}

func TestBagPutAndGet(t *testing.T) {
	bag := frame.NewBag()
	assert.True(t, bag.IsEmpty())
	assert.False(t, bag.IsForced())

	bag.Put("x", 1)
	bag.Put("x", 2)
	bag.Put("visible", true)

	value, ok := bag.Get("x")
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, 2, bag.Len())
	assert.Equal(t, []string{"visible", "x"}, bag.Keys())

	_, ok = bag.Get("missing")
	assert.False(t, ok)
}

func TestBagAllSortedOrder(t *testing.T) {
	bag := bagOf("z", 1, "a", 2, "m", 3)

	var keys []string
	for key := range bag.All() {
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"a", "m", "z"}, keys)

	count := 0
	for range bag.All() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestBagForce(t *testing.T) {
	bag := frame.NewBag()
	bag.Force()
	assert.True(t, bag.IsForced())
	assert.True(t, bag.IsEmpty(), "forced flag does not count as an entry")

	bag.Force()
	assert.True(t, bag.IsForced())
}

func TestBagMerge(t *testing.T) {
	t.Run("overwrites and keeps unmentioned keys", func(t *testing.T) {
		bag := bagOf("x", 1, "y", 2)
		bag.Merge(bagOf("y", 3, "z", 4))

		assert.Equal(t, []string{"x", "y", "z"}, bag.Keys())
		y, _ := bag.Get("y")
		assert.Equal(t, 3, y)
		x, _ := bag.Get("x")
		assert.Equal(t, 1, x)
	})

	t.Run("empty and nil bags are no-ops", func(t *testing.T) {
		bag := bagOf("x", 1)
		bag.Merge(frame.NewBag())
		bag.Merge(nil)
		assert.Equal(t, []string{"x"}, bag.Keys())
	})

	t.Run("merging twice equals merging once", func(t *testing.T) {
		src := bagOf("a", 1, "b", 2)

		once := bagOf("a", 0, "c", 3)
		once.Merge(src)

		twice := bagOf("a", 0, "c", 3)
		twice.Merge(src)
		twice.Merge(src)

		assert.Equal(t, once.Keys(), twice.Keys())
		for key, value := range once.All() {
			other, ok := twice.Get(key)
			require.True(t, ok)
			assert.Equal(t, value, other)
		}
	})

	t.Run("forced flag is not copied", func(t *testing.T) {
		forced := bagOf("x", 1)
		forced.Force()

		bag := frame.NewBag()
		bag.Merge(forced)
		assert.False(t, bag.IsForced())
	})
}

func TestBagClone(t *testing.T) {
	bag := bagOf("x", 1)
	bag.Force()

	clone := bag.Clone()
	clone.Put("y", 2)

	assert.True(t, clone.IsForced())
	assert.Equal(t, 1, bag.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestBagDiffFrom(t *testing.T) {
	t.Run("absent previous keeps everything", func(t *testing.T) {
		bag := bagOf("x", 1, "y", "two")
		diff := bag.DiffFrom(nil)
		assert.Equal(t, []string{"x", "y"}, diff.Keys())
	})

	t.Run("drops unchanged entries", func(t *testing.T) {
		bag := bagOf("x", 1, "y", 2)
		diff := bag.DiffFrom(bagOf("x", 1, "y", 5))

		assert.Equal(t, []string{"y"}, diff.Keys())
		y, _ := diff.Get("y")
		assert.Equal(t, 2, y)
	})

	t.Run("keeps keys missing from previous", func(t *testing.T) {
		diff := bagOf("x", 1, "y", 2).DiffFrom(bagOf("x", 1))
		assert.Equal(t, []string{"y"}, diff.Keys())
	})

	t.Run("empty iff every entry matches", func(t *testing.T) {
		assert.True(t, bagOf("x", 1).DiffFrom(bagOf("x", 1, "z", 9)).IsEmpty())
		assert.True(t, frame.NewBag().DiffFrom(bagOf("x", 1)).IsEmpty())
		assert.False(t, bagOf("x", 1).DiffFrom(bagOf("x", 2)).IsEmpty())
	})

	t.Run("values of different types differ", func(t *testing.T) {
		diff := bagOf("x", 1).DiffFrom(bagOf("x", 1.0))
		assert.Equal(t, []string{"x"}, diff.Keys())
	})

	t.Run("non comparable values compare deeply", func(t *testing.T) {
		bag := bagOf("path", []int{1, 2, 3}, "meta", map[string]int{"a": 1})
		prev := bagOf("path", []int{1, 2, 3}, "meta", map[string]int{"a": 2})

		diff := bag.DiffFrom(prev)
		assert.Equal(t, []string{"meta"}, diff.Keys())
	})

	t.Run("nil values", func(t *testing.T) {
		assert.True(t, bagOf("x", nil).DiffFrom(bagOf("x", nil)).IsEmpty())
		assert.False(t, bagOf("x", nil).DiffFrom(bagOf("x", 0)).IsEmpty())
	})

	t.Run("NaN equals NaN", func(t *testing.T) {
		assert.True(t, bagOf("v", math.NaN()).DiffFrom(bagOf("v", math.NaN())).IsEmpty())
		assert.True(t, bagOf("v", float32(math.NaN())).DiffFrom(bagOf("v", float32(math.NaN()))).IsEmpty())
		assert.False(t, bagOf("v", math.NaN()).DiffFrom(bagOf("v", 1.0)).IsEmpty())
		assert.False(t, bagOf("v", 1.0).DiffFrom(bagOf("v", math.NaN())).IsEmpty())
	})

	t.Run("carries forced flag of the current bag", func(t *testing.T) {
		bag := bagOf("x", 1)
		bag.Force()
		diff := bag.DiffFrom(bagOf("x", 1))

		assert.True(t, diff.IsForced())
		assert.True(t, diff.IsEmpty())

		prev := bagOf("x", 1)
		prev.Force()
		assert.False(t, bagOf("x", 2).DiffFrom(prev).IsForced())
	})

	t.Run("does not share storage with the source", func(t *testing.T) {
		bag := bagOf("x", 1)
		diff := bag.DiffFrom(nil)
		diff.Put("y", 2)
		assert.Equal(t, 1, bag.Len())
	})
}
