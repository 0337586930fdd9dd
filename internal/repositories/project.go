package repositories

import (
	"context"
	"log/slog"

	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/models"
	"github.com/myrjola/turnabout/internal/sqlite"
)

type ProjectRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewProjectRepository(db *sqlite.Database, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger.With("source", "ProjectRepository"),
	}
}

// Touch marks the project file at path as used now.
func (r *ProjectRepository) Touch(ctx context.Context, project models.RecentProject) error {
	stmt := `INSERT INTO projects (path, case_id, case_name)
VALUES (:path, :case_id, :case_name)
ON CONFLICT (path) DO UPDATE SET case_id   = excluded.case_id,
                                 case_name = excluded.case_name,
                                 opened    = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, project); err != nil {
		return errors.Wrap(err, "upsert project", slog.String("path", project.Path))
	}
	return nil
}

// Recent returns the most recently used project files, newest first.
func (r *ProjectRepository) Recent(ctx context.Context, limit int) ([]models.RecentProject, error) {
	var projects []models.RecentProject
	stmt := `SELECT path, case_id, case_name, opened FROM projects ORDER BY opened DESC, path LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &projects, stmt, limit); err != nil {
		return nil, errors.Wrap(err, "select projects")
	}
	return projects, nil
}
