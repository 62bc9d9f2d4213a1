package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/plus3/framediff/frame"
	"github.com/plus3/framediff/internal/config"
	"github.com/plus3/framediff/internal/logging"
	"github.com/plus3/framediff/internal/persist"
	"github.com/plus3/framediff/internal/scripting"
	"github.com/plus3/framediff/replay"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "framediff: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("FRAMEDIFF_CONFIG"), "path to a TOML config file")
	script := flag.String("script", "", "override scenario.script")
	turns := flag.Int("turns", -1, "override scenario.turns")
	out := flag.String("out", "", "override output.path")
	format := flag.String("format", "", "override output.format (json or yaml)")
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *script != "" {
		cfg.Scenario.Script = *script
	}
	if *turns >= 0 {
		cfg.Scenario.Turns = *turns
	}
	if *out != "" {
		cfg.Output.Path = *out
	}
	if *format != "" {
		cfg.Output.Format = *format
	}

	encoder, err := replay.NewEncoder(cfg.Output.Format)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames, err := simulate(ctx, cfg, log)
	if err != nil {
		return err
	}

	if err := writeFrames(cfg.Output.Path, encoder, frames); err != nil {
		return err
	}
	log.Info("replay written",
		zap.String("path", cfg.Output.Path),
		zap.String("format", cfg.Output.Format),
		zap.Int("frames", len(frames)),
	)

	if cfg.Database.Enabled {
		if err := store(ctx, cfg, frames, log); err != nil {
			return err
		}
	}
	return nil
}

// simulate runs the configured scenario and returns every emitted frame.
func simulate(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]replay.Frame, error) {
	timeline := frame.NewTimeline(frame.NewRegistry(), frame.WithLogger(log))

	engine := scripting.NewEngine(timeline, log)
	defer engine.Close()
	if err := engine.LoadFile(cfg.Scenario.Script); err != nil {
		return nil, err
	}

	system := &scripting.System{Engine: engine}
	scheduler := frame.NewScheduler(timeline)
	scheduler.Register(system)

	var frames []replay.Frame
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	scheduler.OnAdvance(func(turn int, diffs []*frame.State) {
		frames = append(frames, replay.FromDiffs(turn, diffs)...)
		if system.Err != nil || turn+1 >= cfg.Scenario.Turns {
			cancel()
		}
	})

	log.Info("running scenario",
		zap.String("script", cfg.Scenario.Script),
		zap.Int("turns", cfg.Scenario.Turns),
		zap.Duration("tick_rate", cfg.Scheduler.TickRate),
	)

	if cfg.Scheduler.TickRate > 0 && cfg.Scenario.Turns > 0 {
		err := scheduler.Run(runCtx, cfg.Scheduler.TickRate)
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	} else {
		for i := 0; i < cfg.Scenario.Turns; i++ {
			if _, err := scheduler.Once(1); err != nil {
				return nil, err
			}
			if system.Err != nil || ctx.Err() != nil {
				break
			}
		}
	}
	if system.Err != nil {
		return nil, system.Err
	}

	stats := scheduler.GetStats()
	log.Info("scenario finished",
		zap.Int64("turns", stats.Turns),
		zap.Int64("frames", stats.FramesEmitted),
		zap.Int64("entities", stats.EntitiesEmitted),
		zap.Int("live_entities", timeline.Registry().Len()),
	)
	return frames, ctx.Err()
}

func writeFrames(path string, encoder replay.Encoder, frames []replay.Frame) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encoder.Encode(w, frames)
}

func store(ctx context.Context, cfg *config.Config, frames []replay.Frame, log *zap.Logger) error {
	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	repo := persist.NewFrameRepo(db)
	runID, err := repo.CreateRun(ctx, cfg.Scenario.Script)
	if err != nil {
		return err
	}
	if err := repo.SaveFrames(ctx, runID, frames); err != nil {
		return err
	}

	log.Info("replay stored", zap.Int64("run_id", runID), zap.Int("frames", len(frames)))
	return nil
}
