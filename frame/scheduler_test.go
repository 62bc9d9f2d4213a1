package frame_test

import (
	"context"
	"testing"
	"time"

	"github.com/plus3/framediff/frame"
)

// MovementSystem owns positions of its entities and publishes them as properties.
type MovementSystem struct {
	Positions    map[frame.EntityId]float64
	Speed        float64
	ExecuteCount int
}

func (s *MovementSystem) Execute(uf *frame.UpdateFrame) {
	s.ExecuteCount++
	for id, x := range s.Positions {
		entity, ok := uf.Registry.Get(id)
		if !ok {
			continue
		}
		x += s.Speed * uf.DeltaTime
		s.Positions[id] = x
		entity.Set("x", x)
	}
}

type CountingSystem struct {
	ExecuteCount int
	Turns        []int
}

func (s *CountingSystem) Execute(uf *frame.UpdateFrame) {
	s.ExecuteCount++
	s.Turns = append(s.Turns, uf.Turn)
}

func TestScheduler(t *testing.T) {
	t.Run("system execution order and turn numbering", func(t *testing.T) {
		registry := frame.NewRegistry()
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))

		first := &CountingSystem{}
		second := &CountingSystem{}
		scheduler.Register(first)
		scheduler.Register(second)

		scheduler.Once(1.0)
		scheduler.Once(1.0)

		if first.ExecuteCount != 2 || second.ExecuteCount != 2 {
			t.Errorf("expected both systems to execute twice, got %d and %d", first.ExecuteCount, second.ExecuteCount)
		}
		if len(first.Turns) != 2 || first.Turns[0] != 0 || first.Turns[1] != 1 {
			t.Errorf("expected turns [0 1], got %v", first.Turns)
		}
	})

	t.Run("delta time drives emitted values", func(t *testing.T) {
		registry := frame.NewRegistry()
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))

		entity := registry.Create()
		movement := &MovementSystem{
			Positions: map[frame.EntityId]float64{entity.Id(): 0},
			Speed:     10,
		}
		scheduler.Register(movement)

		diffs, err := scheduler.Once(0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		bag, ok := diffs[len(diffs)-1].Bag(entity.Id())
		if !ok {
			t.Fatal("expected moved entity in diff")
		}
		if x, _ := bag.Get("x"); x != 5.0 {
			t.Errorf("expected x=5, got %v", x)
		}
	})

	t.Run("stationary entities stop being emitted", func(t *testing.T) {
		registry := frame.NewRegistry()
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))

		entity := registry.Create()
		scheduler.Register(&MovementSystem{
			Positions: map[frame.EntityId]float64{entity.Id(): 3},
			Speed:     0,
		})

		first, _ := scheduler.Once(1.0)
		second, _ := scheduler.Once(1.0)

		if !first[0].Has(entity.Id()) {
			t.Error("expected entity in the first turn")
		}
		if second[0].Has(entity.Id()) {
			t.Error("expected unchanged entity to be omitted")
		}
	})

	t.Run("advance callbacks", func(t *testing.T) {
		registry := frame.NewRegistry()
		registry.Create().Set("x", 1)
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))

		var turns []int
		var emitted int
		scheduler.OnAdvance(func(turn int, diffs []*frame.State) {
			turns = append(turns, turn)
			for _, diff := range diffs {
				emitted += diff.Len()
			}
		})

		scheduler.Once(1.0)
		scheduler.Once(1.0)

		if len(turns) != 2 || turns[0] != 0 || turns[1] != 1 {
			t.Errorf("expected callbacks for turns [0 1], got %v", turns)
		}
		if emitted != 1 {
			t.Errorf("expected 1 emitted entity, got %d", emitted)
		}
	})

	t.Run("context cancellation in run", func(t *testing.T) {
		registry := frame.NewRegistry()
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))

		counter := &CountingSystem{}
		scheduler.Register(counter)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error)
		go func() {
			done <- scheduler.Run(ctx, 1*time.Millisecond)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != context.Canceled {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("scheduler did not stop after context cancellation")
		}

		if counter.ExecuteCount == 0 {
			t.Error("expected system to execute at least once")
		}
	})

	t.Run("run stops on command errors", func(t *testing.T) {
		registry := frame.NewRegistry()
		entity := registry.Create()
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))
		scheduler.Register(&testCommitSystem{entity: entity.Id(), t: 5})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := scheduler.Run(ctx, time.Millisecond)
		if err == nil || err == context.DeadlineExceeded {
			t.Errorf("expected commit error, got %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		registry := frame.NewRegistry()
		registry.Create().Set("x", 1)
		registry.Create().Set("x", 2)
		scheduler := frame.NewScheduler(frame.NewTimeline(registry))
		scheduler.Register(&CountingSystem{})

		scheduler.Once(1.0)
		scheduler.Once(1.0)

		stats := scheduler.GetStats()
		if stats.SystemCount != 1 {
			t.Errorf("expected 1 system, got %d", stats.SystemCount)
		}
		if stats.TotalExecutions != 2 {
			t.Errorf("expected 2 executions, got %d", stats.TotalExecutions)
		}
		if stats.Turns != 2 || stats.FramesEmitted != 2 {
			t.Errorf("expected 2 turns and 2 frames, got %d and %d", stats.Turns, stats.FramesEmitted)
		}
		if stats.EntitiesEmitted != 2 {
			t.Errorf("expected 2 emitted entities, got %d", stats.EntitiesEmitted)
		}
		if stats.Systems[0].Name != "CountingSystem" {
			t.Errorf("expected system name CountingSystem, got %s", stats.Systems[0].Name)
		}
		if stats.Systems[0].MinDuration > stats.Systems[0].MaxDuration {
			t.Error("expected min duration <= max duration")
		}
	})
}
