package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/script"
)

// open loads the project file into the workspace.
func (app *application) open(ctx context.Context) (*casedoc.Document, error) {
	if err := app.workspace.Open(ctx, app.projectPath); err != nil {
		return nil, err
	}
	return app.workspace.Current(), nil
}

// edit opens the project, applies fn and saves the result. Nothing is written when fn fails.
func (app *application) edit(ctx context.Context, fn func(doc *casedoc.Document) error) error {
	doc, err := app.open(ctx)
	if err != nil {
		return err
	}
	unsubscribe := doc.Subscribe(func(c casedoc.Change) {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "case changed", changeAttrs(c)...)
	})
	defer unsubscribe()
	if err = fn(doc); err != nil {
		return err
	}
	return app.workspace.Save(ctx, app.projectPath)
}

func changeAttrs(c casedoc.Change) []slog.Attr {
	attrs := []slog.Attr{slog.String("kind", string(c.Kind))}
	switch c.Kind {
	case casedoc.ChangeEntity:
		attrs = append(attrs, slog.String("op", string(c.Entity.Op)), slog.String("ref", c.Entity.Ref.String()))
	case casedoc.ChangeScript:
		attrs = append(attrs,
			slog.String("op", string(c.Script.Op)),
			slog.String("script", c.Script.Key.String()),
			slog.String("block", string(c.Script.Block)))
	case casedoc.ChangeDuration:
		attrs = append(attrs, slog.Int("days", c.Days))
	case casedoc.ChangeInfo:
	}
	return attrs
}

// scriptArgs resolves the DAY and PHASE arguments of block commands.
func scriptArgs(doc *casedoc.Document, dayArg, phaseArg string) (*script.Document, error) {
	day, err := strconv.Atoi(dayArg)
	if err != nil {
		return nil, errors.Wrap(err, "parse day", slog.String("day", dayArg))
	}
	phase := script.Phase(phaseArg)
	switch phaseArg {
	case "i":
		phase = script.PhaseInvestigation
	case "t":
		phase = script.PhaseTrial
	}
	return doc.ScriptDocument(day, phase)
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Wrap(err, "parse index", slog.String("index", arg))
	}
	return index, nil
}

func printIssues(w io.Writer, issues []casedoc.Issue) {
	for _, issue := range issues {
		severity := "warning"
		if issue.Fatal() {
			severity = "error"
		}
		_, _ = fmt.Fprintf(w, "%s: %s\n", severity, issue)
	}
}
