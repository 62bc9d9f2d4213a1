package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/plus3/framediff/replay"
	"go.uber.org/zap"
)

// FrameRepo stores the frames emitted by a run so that a replay can be served later.
type FrameRepo struct {
	db *DB
}

func NewFrameRepo(db *DB) *FrameRepo {
	return &FrameRepo{db: db}
}

// CreateRun registers a new run and returns its id.
func (r *FrameRepo) CreateRun(ctx context.Context, scenario string) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO replay_runs (scenario) VALUES ($1) RETURNING id`,
		scenario,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// SaveFrames writes a batch of frames in a single transaction.
func (r *FrameRepo) SaveFrames(ctx context.Context, runID int64, frames []replay.Frame) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save frames begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range frames {
		payload, err := json.Marshal(f.Entities)
		if err != nil {
			return fmt.Errorf("marshal frame %d@%v: %w", f.Turn, f.Time, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO replay_frames (run_id, turn, frame_time, full_frame, entity_count, payload)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, f.Turn, f.Time, f.Full, len(f.Entities), payload,
		); err != nil {
			return fmt.Errorf("insert frame %d@%v: %w", f.Turn, f.Time, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save frames commit: %w", err)
	}

	r.db.log.Debug("frames saved", zap.Int64("run", runID), zap.Int("frames", len(frames)))
	return nil
}

// LoadFrames returns the frames of a run ordered by turn and frame time.
// Property values come back as decoded JSON (numbers are float64).
func (r *FrameRepo) LoadFrames(ctx context.Context, runID int64) ([]replay.Frame, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT turn, frame_time, full_frame, payload
		 FROM replay_frames WHERE run_id = $1
		 ORDER BY turn, frame_time`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}

	frames, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (replay.Frame, error) {
		var f replay.Frame
		var payload []byte
		if err := row.Scan(&f.Turn, &f.Time, &f.Full, &payload); err != nil {
			return f, err
		}
		if err := json.Unmarshal(payload, &f.Entities); err != nil {
			return f, fmt.Errorf("unmarshal frame %d@%v: %w", f.Turn, f.Time, err)
		}
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	return frames, nil
}
