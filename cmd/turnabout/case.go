package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/spf13/cobra"
)

var caseGroup = &cobra.Group{ //nolint:gochecknoglobals // cobra command tree.
	ID:    "case",
	Title: "Case operations",
}

func init() {
	newCmd.Flags().String("author", "", "author of the case")
	newCmd.Flags().Int("days", 1, "number of days the case lasts")
	newCmd.Flags().Bool("force", false, "overwrite an existing project file")
}

var newCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "new NAME",
	GroupID: "case",
	Short:   "Create a project file for a new case",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		author, _ := cmd.Flags().GetString("author")
		days, _ := cmd.Flags().GetInt("days")
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(app.projectPath); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite it", app.projectPath)
		}
		doc, err := casedoc.New(args[0], author, days)
		if err != nil {
			return err
		}
		app.workspace.Replace(doc)
		if err = app.workspace.Save(cmd.Context(), app.projectPath); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", app.projectPath, doc.ID())
		return nil
	},
}

var infoCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "info",
	GroupID: "case",
	Short:   "Show case metadata and script sizes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		info := doc.Info()
		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "id:         %s\n", doc.ID())
		_, _ = fmt.Fprintf(w, "name:       %s\n", info.Name)
		_, _ = fmt.Fprintf(w, "author:     %s\n", info.Author)
		_, _ = fmt.Fprintf(w, "days:       %d\n", doc.Days())
		_, _ = fmt.Fprintf(w, "characters: %d\n", len(doc.Entities().Characters()))
		_, _ = fmt.Fprintf(w, "locations:  %d\n", len(doc.Entities().Locations()))
		_, _ = fmt.Fprintf(w, "assets:     %d\n", len(doc.Entities().Assets()))
		for _, s := range doc.Scripts() {
			_, _ = fmt.Fprintf(w, "%-20s %d blocks\n", s.Key().String()+":", s.Len())
		}
		return nil
	},
}

var errInvalidCase = errors.NewSentinel("case has fatal issues")

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "validate",
	GroupID: "case",
	Short:   "Check the case for problems that would block export",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		issues := doc.Validate()
		printIssues(cmd.OutOrStdout(), issues)
		if fatal := casedoc.Fatal(issues); len(fatal) > 0 {
			return errors.Wrap(errInvalidCase, "validate", slog.Int("fatal", len(fatal)))
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var durationCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "duration DAYS",
	GroupID: "case",
	Short:   "Change the number of days the case lasts",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrap(err, "parse days")
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			return doc.SetDuration(days)
		})
	},
}
