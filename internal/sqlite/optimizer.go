package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/turnabout/internal/errors"
)

// optimize runs PRAGMA optimize, which is recommended before closing short-lived connections.
// See https://www.sqlite.org/pragma.html#pragma_optimize. Failures are logged and ignored.
func (db *Database) optimize(ctx context.Context) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		err = errors.Wrap(err, "optimize database")
		db.logger.LogAttrs(ctx, slog.LevelWarn, "failed to optimize database", errors.SlogError(err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}
