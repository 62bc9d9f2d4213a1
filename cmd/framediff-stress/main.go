package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/framediff/frame"
	"github.com/plus3/framediff/internal/config"
	"github.com/plus3/framediff/internal/logging"
	"go.uber.org/zap"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	propCount := flag.Int("props", 8, "The number of properties per entity.")
	churn := flag.Float64("churn", 0.1, "Fraction of entities written each turn.")
	commitRate := flag.Float64("commit-rate", 0.05, "Fraction of written entities committed mid-turn.")
	spawnRate := flag.Int("spawn", 10, "Entities spawned and deleted each turn.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the current directory.")
	flag.Parse()

	log, err := logging.New(config.LoggingConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		log.Fatal("unknown profile mode", zap.String("profile", *profileMode))
	}

	log.Info("starting frame diff stress test")

	// 1. Setup Registry, Timeline, and Scheduler
	registry := frame.NewRegistry()
	timeline := frame.NewTimeline(registry)
	scheduler := frame.NewScheduler(timeline)

	churner := &ChurnSystem{
		Rand:       rand.New(rand.NewSource(1)),
		Props:      *propCount,
		Churn:      *churn,
		CommitRate: *commitRate,
		Spawn:      *spawnRate,
	}
	scheduler.Register(churner)

	// 2. Populate the registry with initial entities
	log.Info("populating registry", zap.Int("entities", *entityCount))
	for i := 0; i < *entityCount; i++ {
		churner.populate(registry.Create())
	}
	timeline.Advance()
	log.Info("population complete", zap.Int("aggregate", timeline.Aggregate().Len()))

	// 3. Run the simulation loop
	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Props:          *propCount,
		Churn:          *churn,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info("running simulation", zap.Duration("duration", *duration))
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			if _, err := scheduler.Once(deltaTime.Seconds()); err != nil {
				log.Fatal("turn failed", zap.Error(err))
			}
			updateDuration := time.Since(updateStart)

			report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
			totalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.UpdateTime.Finalize()
	report.Scheduler = scheduler.GetStats()
	report.LiveEntities = registry.Len()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Info("simulation finished", zap.Int64("turns", totalUpdates))

	// 4. Generate Report to Console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}
