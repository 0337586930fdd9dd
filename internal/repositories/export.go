package repositories

import (
	"context"
	"log/slog"

	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/models"
	"github.com/myrjola/turnabout/internal/sqlite"
)

type ExportRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewExportRepository(db *sqlite.Database, logger *slog.Logger) *ExportRepository {
	return &ExportRepository{
		db:     db,
		logger: logger.With("source", "ExportRepository"),
	}
}

// Record stores a successful export and returns its ID.
func (r *ExportRepository) Record(ctx context.Context, record models.ExportRecord) (int64, error) {
	stmt := `INSERT INTO exports (case_id, case_name, path, size, checksum, instructions, warnings)
VALUES (:case_id, :case_name, :path, :size, :checksum, :instructions, :warnings)`
	result, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, record)
	if err != nil {
		return 0, errors.Wrap(err, "insert export", slog.String("case_id", record.CaseID))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "last insert id")
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "recorded export", slog.Int64("id", id), slog.String("path", record.Path))
	return id, nil
}

// List returns the exports of a case, newest first. An empty caseID lists every case.
func (r *ExportRepository) List(ctx context.Context, caseID string, limit int) ([]models.ExportRecord, error) {
	var records []models.ExportRecord
	stmt := `SELECT id, case_id, case_name, path, size, checksum, instructions, warnings, created
FROM exports
WHERE ? = '' OR case_id = ?
ORDER BY id DESC
LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &records, stmt, caseID, caseID, limit); err != nil {
		return nil, errors.Wrap(err, "select exports", slog.String("case_id", caseID))
	}
	return records, nil
}
