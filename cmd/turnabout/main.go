package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/turnabout/internal/envstruct"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/export"
	"github.com/myrjola/turnabout/internal/logging"
	"github.com/myrjola/turnabout/internal/repositories"
	"github.com/myrjola/turnabout/internal/sqlite"
	"github.com/myrjola/turnabout/internal/workspace"
	"github.com/spf13/cobra"
)

type config struct {
	// HistoryDB is the SQLite database keeping exports and recently used projects.
	HistoryDB string `env:"TURNABOUT_HISTORY_DB" envDefault:"./turnabout.sqlite"`
	LogLevel  string `env:"TURNABOUT_LOG_LEVEL" envDefault:"info"`
}

type application struct {
	logger      *slog.Logger
	db          *sqlite.Database
	exports     *repositories.ExportRepository
	projects    *repositories.ProjectRepository
	workspace   *workspace.Workspace
	projectPath string
}

var app = &application{} //nolint:gochecknoglobals,exhaustruct // populated in setup before any command runs.

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.PersistentFlags().StringVarP(&app.projectPath, "project", "p", "case.cprjt", "path to the project file")

	rootCmd.AddGroup(caseGroup, entityGroup, scriptGroup, outputGroup)
	rootCmd.AddCommand(newCmd, infoCmd, validateCmd, durationCmd)
	rootCmd.AddCommand(characterCmd, locationCmd, assetCmd, evidenceCmd, testimonyCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(exportCmd, inspectCmd, extractBlocksCmd, historyCmd, recentCmd)
}

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:               "turnabout",
	Short:             "Author interactive courtroom cases",
	Long:              `Edits case project files and exports them for the playback runtime.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return app.setup(cmd.Context()) },
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return app.teardown(cmd.Context())
	},
}

func (app *application) setup(ctx context.Context) error {
	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return errors.Wrap(err, "read configuration")
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	app.logger = logging.New(os.Stderr, level)

	if app.db, err = sqlite.NewDatabase(ctx, cfg.HistoryDB, app.logger); err != nil {
		return errors.Wrap(err, "open history database", slog.String("url", cfg.HistoryDB))
	}
	app.exports = repositories.NewExportRepository(app.db, app.logger)
	app.projects = repositories.NewProjectRepository(app.db, app.logger)
	app.workspace = workspace.New(app.logger, export.NewPipeline(app.logger), app.exports, app.projects)
	return nil
}

func (app *application) teardown(ctx context.Context) error {
	if app.db == nil {
		return nil
	}
	db := app.db
	app.db = nil
	return db.Close(ctx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if app.logger != nil {
			app.logger.LogAttrs(context.Background(), slog.LevelDebug, "command failed", errors.SlogError(err))
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		_ = app.teardown(context.Background())
		os.Exit(1)
	}
}
