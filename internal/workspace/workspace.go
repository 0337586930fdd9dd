// Package workspace holds the case currently being edited and moves it between memory and disk.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/export"
	"github.com/myrjola/turnabout/internal/logging"
	"github.com/myrjola/turnabout/internal/models"
	"github.com/myrjola/turnabout/internal/notify"
	"github.com/myrjola/turnabout/internal/project"
)

var ErrNoDocument = errors.NewSentinel("no open document")

// ExportHistory records successful exports.
type ExportHistory interface {
	Record(ctx context.Context, record models.ExportRecord) (int64, error)
}

// RecentProjects remembers project files that were opened or saved.
type RecentProjects interface {
	Touch(ctx context.Context, project models.RecentProject) error
}

type Workspace struct {
	logger   *slog.Logger
	pipeline *export.Pipeline
	exports  ExportHistory
	projects RecentProjects
	current  *casedoc.Document
	path     string
	replaced *notify.Hub[*casedoc.Document]
}

// New creates an empty workspace. exports and projects may be nil when no history is kept.
func New(logger *slog.Logger, pipeline *export.Pipeline, exports ExportHistory, projects RecentProjects) *Workspace {
	return &Workspace{
		logger:   logger.With("source", "workspace"),
		pipeline: pipeline,
		exports:  exports,
		projects: projects,
		current:  nil,
		path:     "",
		replaced: notify.NewHub[*casedoc.Document](),
	}
}

// Current returns the open document or nil.
func (w *Workspace) Current() *casedoc.Document {
	return w.current
}

// Path returns the project file the current document was last opened from or saved to.
func (w *Workspace) Path() string {
	return w.path
}

// Replace makes doc the current document. It is detached from any project file.
func (w *Workspace) Replace(doc *casedoc.Document) {
	w.replace(doc, "")
}

// OnReplace registers fn to be called whenever the current document changes.
func (w *Workspace) OnReplace(fn func(*casedoc.Document)) func() {
	return w.replaced.Subscribe(fn)
}

func (w *Workspace) replace(doc *casedoc.Document, path string) {
	w.current = doc
	w.path = path
	w.replaced.Publish(doc)
}

// Open loads the project file at path and makes it the current document. On failure the current
// document is left as it was.
func (w *Workspace) Open(ctx context.Context, path string) error {
	ctx = logging.WithAttrs(ctx, slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read project file", slog.String("path", path))
	}
	doc, err := project.Unmarshal(data)
	if err != nil {
		return errors.Wrap(err, "load project", slog.String("path", path))
	}
	w.replace(doc, path)
	w.logger.LogAttrs(ctx, slog.LevelDebug, "opened project", slog.String("case_id", doc.ID().String()))
	w.touch(ctx, doc, path)
	return nil
}

// Save writes the current document to path. Validation warnings are logged but do not block
// saving, since work in progress is allowed to be incomplete.
func (w *Workspace) Save(ctx context.Context, path string) error {
	doc := w.current
	if doc == nil {
		return ErrNoDocument
	}
	ctx = logging.WithAttrs(ctx, slog.String("path", path))
	for _, issue := range doc.Validate() {
		w.logger.LogAttrs(ctx, slog.LevelDebug, "validation issue",
			slog.String("kind", string(issue.Kind)), slog.String("issue", issue.String()))
	}
	data, err := project.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "serialize project")
	}
	if err = writeAtomic(path, data); err != nil {
		return errors.Wrap(err, "write project file", slog.String("path", path))
	}
	w.path = path
	w.logger.LogAttrs(ctx, slog.LevelInfo, "saved project", slog.Int("bytes", len(data)))
	w.touch(ctx, doc, path)
	return nil
}

// Export writes the runtime artifact of the current document to path. Nothing is written when the
// export fails.
func (w *Workspace) Export(ctx context.Context, path string) (export.Result, error) {
	doc := w.current
	if doc == nil {
		return export.Result{}, ErrNoDocument
	}
	ctx = logging.WithAttrs(ctx, slog.String("path", path), slog.String("case_id", doc.ID().String()))
	result, err := w.pipeline.Export(ctx, doc)
	if err != nil {
		return export.Result{}, errors.Wrap(err, "export case")
	}
	if err = writeAtomic(path, result.Artifact); err != nil {
		return export.Result{}, errors.Wrap(err, "write artifact", slog.String("path", path))
	}
	if w.exports != nil {
		record := models.ExportRecord{
			ID:           0,
			CaseID:       doc.ID().String(),
			CaseName:     doc.Info().Name,
			Path:         path,
			Size:         int64(len(result.Artifact)),
			Checksum:     fmt.Sprintf("%016x", result.Checksum),
			Instructions: int64(result.Instructions),
			Warnings:     int64(len(result.Warnings)),
			Created:      "",
		}
		if _, err = w.exports.Record(ctx, record); err != nil {
			w.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record export", errors.SlogError(err))
		}
	}
	return result, nil
}

func (w *Workspace) touch(ctx context.Context, doc *casedoc.Document, path string) {
	if w.projects == nil {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	recent := models.RecentProject{CaseID: doc.ID().String(), CaseName: doc.Info().Name, Path: path, Opened: ""}
	if err := w.projects.Touch(ctx, recent); err != nil {
		w.logger.LogAttrs(ctx, slog.LevelWarn, "failed to remember project", errors.SlogError(err))
	}
}
