package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/export"
	"github.com/spf13/cobra"
)

var outputGroup = &cobra.Group{ //nolint:gochecknoglobals // cobra command tree.
	ID:    "output",
	Title: "Export and history",
}

func init() {
	historyCmd.Flags().String("case", "", "only list exports of this case ID")
	historyCmd.Flags().Int("limit", 20, "maximum number of exports to list") //nolint:mnd // default page.
	recentCmd.Flags().Int("limit", 10, "maximum number of projects to list") //nolint:mnd // default page.
}

var exportCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "export OUT",
	GroupID: "output",
	Short:   "Validate the case and write the runtime artifact",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.open(cmd.Context()); err != nil {
			return err
		}
		result, err := app.workspace.Export(cmd.Context(), args[0])
		if err != nil {
			var exportErr *export.ExportError
			if errors.As(err, &exportErr) {
				printIssues(cmd.ErrOrStderr(), exportErr.Issues)
			}
			return err
		}
		printIssues(cmd.ErrOrStderr(), result.Warnings)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d bytes, %d instructions, %d assets, checksum %016x\n",
			args[0], len(result.Artifact), result.Instructions, result.Assets, result.Checksum)
		return nil
	},
}

func readArtifact(path string) (*export.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read artifact", slog.String("path", path))
	}
	artifact, err := export.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode artifact", slog.String("path", path))
	}
	return artifact, nil
}

var inspectCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "inspect ARTIFACT",
	GroupID: "output",
	Short:   "Verify an exported artifact and summarise its contents",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		artifact, err := readArtifact(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "case:       %s (%s)\n", artifact.Name, artifact.CaseID)
		_, _ = fmt.Fprintf(w, "author:     %s\n", artifact.Author)
		_, _ = fmt.Fprintf(w, "days:       %d\n", artifact.Days)
		_, _ = fmt.Fprintf(w, "start:      %s\n", artifact.InitialBlock)
		_, _ = fmt.Fprintf(w, "characters: %d\n", len(artifact.Characters))
		_, _ = fmt.Fprintf(w, "locations:  %d\n", len(artifact.Locations))
		_, _ = fmt.Fprintf(w, "assets:     %d\n", len(artifact.Assets))
		for _, seg := range artifact.Segments {
			_, _ = fmt.Fprintf(w, "day %d %-13s %d instructions\n", seg.Day, seg.Phase, len(seg.Instructions))
		}
		return nil
	},
}

var extractBlocksCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "extract-blocks ARTIFACT OUTDIR",
	GroupID: "output",
	Short:   "Write the text of every block of an artifact to its own file",
	Args:    cobra.ExactArgs(2), //nolint:mnd // ARTIFACT OUTDIR.
	RunE: func(cmd *cobra.Command, args []string) error {
		artifact, err := readArtifact(args[0])
		if err != nil {
			return err
		}
		dir := args[1]
		if err = os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // rwxr-xr-x.
			return errors.Wrap(err, "create output directory", slog.String("dir", dir))
		}
		written := 0
		for _, seg := range artifact.Segments {
			for _, in := range seg.Instructions {
				if in.Block == "" || strings.ContainsAny(in.Block, `/\`) || in.Block == "." || in.Block == ".." {
					app.logger.LogAttrs(cmd.Context(), slog.LevelWarn, "skipping block with unsafe id",
						slog.String("block", in.Block))
					continue
				}
				path := filepath.Join(dir, in.Block+".txt")
				if err = os.WriteFile(path, []byte(in.Text), 0o644); err != nil { //nolint:gosec,mnd // rw-r--r--.
					return errors.Wrap(err, "write block", slog.String("path", path))
				}
				written++
			}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d blocks to %s\n", written, dir)
		return nil
	},
}

var historyCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "history",
	GroupID: "output",
	Short:   "List previous exports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		caseID, _ := cmd.Flags().GetString("case")
		limit, _ := cmd.Flags().GetInt("limit")
		records, err := app.exports.List(cmd.Context(), caseID, limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %s  %d bytes  %d instructions  %d warnings  %s\n",
				r.Created, r.CaseName, r.Checksum, r.Size, r.Instructions, r.Warnings, r.Path)
		}
		return nil
	},
}

var recentCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "recent",
	GroupID: "output",
	Short:   "List recently opened projects",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		projects, err := app.projects.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, p := range projects {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %s\n", p.Opened, p.CaseName, p.Path)
		}
		return nil
	},
}
