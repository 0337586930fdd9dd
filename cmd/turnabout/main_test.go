package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/script"
	"github.com/stretchr/testify/require"
)

// run executes the command line in-process and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	// PersistentPostRunE is skipped when a command fails.
	require.NoError(t, app.teardown(context.Background()))
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "turnabout %s", strings.Join(args, " "))
	return out
}

func TestCLI_AuthorAndExport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TURNABOUT_HISTORY_DB", filepath.Join(dir, "history.sqlite"))
	t.Setenv("TURNABOUT_LOG_LEVEL", "error")
	project := filepath.Join(dir, "case.cprjt")
	artifact := filepath.Join(dir, "case.pwcx")

	mustRun(t, "new", "The First Turnabout", "--author", "Alice", "--days", "2", "-p", project)
	_, err := run(t, "new", "Again", "-p", project)
	require.Error(t, err, "new refuses to overwrite without --force")

	require.Equal(t, "chr-1\n", mustRun(t, "character", "add", "--name", "Phoenix Wright", "--gender", "male", "-p", project))
	require.Equal(t, "loc-1\n", mustRun(t, "location", "add", "Courtroom", "-p", project))
	require.Equal(t, "d1t.1\n", mustRun(t, "block", "add", "1", "t", "--text", "I'm fine!", "--speaker", "chr-1", "-p", project))

	_, err = run(t, "character", "remove", "chr-1", "-p", project)
	require.ErrorIs(t, err, entity.ErrInUse)

	out := mustRun(t, "block", "list", "1", "trial", "-p", project)
	require.Contains(t, out, "d1t.1")
	require.Contains(t, out, "I'm fine!")

	require.Contains(t, mustRun(t, "validate", "-p", project), "ok")

	out = mustRun(t, "export", artifact, "-p", project)
	require.Contains(t, out, "1 instructions")

	out = mustRun(t, "inspect", artifact, "-p", project)
	require.Contains(t, out, "The First Turnabout")
	require.Contains(t, out, "start:      d1t.1")

	blocks := filepath.Join(dir, "blocks")
	mustRun(t, "extract-blocks", artifact, blocks, "-p", project)
	text, err := os.ReadFile(filepath.Join(blocks, "d1t.1.txt"))
	require.NoError(t, err)
	require.Equal(t, "I'm fine!", string(text))

	require.Contains(t, mustRun(t, "history", "-p", project), artifact)
	require.Contains(t, mustRun(t, "recent", "-p", project), "The First Turnabout")
}

func TestCLI_ValidateFailsOnFatalIssues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TURNABOUT_HISTORY_DB", ":memory:")
	t.Setenv("TURNABOUT_LOG_LEVEL", "error")
	project := filepath.Join(dir, "case.cprjt")

	mustRun(t, "new", "Empty", "-p", project)
	_, err := run(t, "validate", "-p", project)
	require.ErrorIs(t, err, errInvalidCase)

	_, err = run(t, "export", filepath.Join(dir, "out.pwcx"), "-p", project)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "out.pwcx"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestCLI_CourtRecord(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TURNABOUT_HISTORY_DB", ":memory:")
	t.Setenv("TURNABOUT_LOG_LEVEL", "error")
	project := filepath.Join(dir, "case.cprjt")

	mustRun(t, "new", "Turnabout Sisters", "--days", "2", "-p", project)
	require.Equal(t, "chr-1\n", mustRun(t, "character", "add", "--name", "Maya Fey", "-p", project))
	require.Equal(t, "evd-1\n", mustRun(t, "evidence", "add", "--name", "The Thinker", "-p", project))
	require.Equal(t, "d1t.1\n", mustRun(t, "block", "add", "1", "t",
		"--text", "{*add_evidence:evd-1;*}Got it.", "--speaker", "chr-1", "-p", project))

	_, err := run(t, "block", "add", "2", "i", "--id", "d1t.1", "--text", "Again", "-p", project)
	require.ErrorIs(t, err, script.ErrDuplicateBlock, "block IDs are unique across days and phases")

	require.Equal(t, "tst-1\n", mustRun(t, "testimony", "add", "Witness Testimony", "--speaker", "chr-1", "-p", project))
	mustRun(t, "testimony", "piece", "tst-1", "The clock struck nine.",
		"--present-evidence", "evd-1", "--present-block", "d1t.1", "-p", project)
	require.Contains(t, mustRun(t, "testimony", "list", "-p", project), "pieces=1")

	_, err = run(t, "evidence", "remove", "evd-1", "-p", project)
	require.ErrorIs(t, err, entity.ErrInUse)

	require.Equal(t, "loc-1\n", mustRun(t, "location", "add", "Fey & Co. Law Offices", "-p", project))
	require.Equal(t, "0\n", mustRun(t, "location", "hotspot", "add", "loc-1",
		"--x", "10", "--y", "20", "--width", "64", "--height", "32", "--block", "d1t.1", "-p", project))
	_, err = run(t, "location", "hotspot", "remove", "loc-1", "3", "-p", project)
	require.ErrorIs(t, err, errNoSuchHotspot)
	mustRun(t, "location", "hotspot", "remove", "loc-1", "0", "-p", project)
}
