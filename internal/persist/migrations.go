package persist

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var schema embed.FS

// gooseLogger routes goose output into zap. goose calls Fatalf only for
// unrecoverable states, which are logged at error level rather than exiting.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate brings the replay schema up to date.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetLogger(gooseLogger{log: db.log.Named("migrate").Sugar()})
	goose.SetBaseFS(schema)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate replay schema: %w", err)
	}

	conn := stdlib.OpenDBFromPool(db.Pool)
	defer conn.Close()

	before, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		before = 0
	}
	if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
		return fmt.Errorf("migrate replay schema: %w", err)
	}
	after, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	db.log.Info("replay schema ready", zap.Int64("from", before), zap.Int64("version", after))
	return nil
}
