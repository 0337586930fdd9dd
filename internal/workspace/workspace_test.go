package workspace_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/export"
	"github.com/myrjola/turnabout/internal/models"
	"github.com/myrjola/turnabout/internal/project"
	"github.com/myrjola/turnabout/internal/script"
	"github.com/myrjola/turnabout/internal/testhelpers"
	"github.com/myrjola/turnabout/internal/workspace"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	exports  []models.ExportRecord
	projects []models.RecentProject
}

func (f *fakeHistory) Record(_ context.Context, record models.ExportRecord) (int64, error) {
	f.exports = append(f.exports, record)
	return int64(len(f.exports)), nil
}

func (f *fakeHistory) Touch(_ context.Context, p models.RecentProject) error {
	f.projects = append(f.projects, p)
	return nil
}

func newWorkspace(history *fakeHistory) *workspace.Workspace {
	logger := testhelpers.NewLogger(io.Discard)
	return workspace.New(logger, export.NewPipeline(logger), history, history)
}

func exportableCase(t *testing.T) *casedoc.Document {
	t.Helper()
	doc, err := casedoc.New("Turnabout Samurai", "Capcom", 1)
	require.NoError(t, err)
	will := doc.Entities().AddCharacter(entity.Character{Name: "Will Powers", Gender: entity.GenderMale})
	for _, phase := range script.Phases {
		s, err := doc.ScriptDocument(1, phase)
		require.NoError(t, err)
		_, err = s.InsertBlock(0, script.TextBlock{Text: "I didn't do it!", Speaker: will})
		require.NoError(t, err)
	}
	return doc
}

func TestWorkspace_SaveOpen(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}
	ws := newWorkspace(history)
	path := filepath.Join(t.TempDir(), "samurai.cprjt")

	require.ErrorIs(t, ws.Save(ctx, path), workspace.ErrNoDocument)

	doc := exportableCase(t)
	var replaced []*casedoc.Document
	ws.OnReplace(func(d *casedoc.Document) { replaced = append(replaced, d) })
	ws.Replace(doc)
	require.NoError(t, ws.Save(ctx, path))
	require.Equal(t, path, ws.Path())

	other := newWorkspace(history)
	require.NoError(t, other.Open(ctx, path))
	require.Equal(t, doc.Snapshot(), other.Current().Snapshot())

	require.Equal(t, []*casedoc.Document{doc}, replaced)
	require.Len(t, history.projects, 2, "save and open are both remembered")
	require.Equal(t, doc.ID().String(), history.projects[1].CaseID)
	require.True(t, filepath.IsAbs(history.projects[1].Path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWorkspace_OpenFailureKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(&fakeHistory{})
	doc := exportableCase(t)
	ws.Replace(doc)
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.cprjt")
	require.NoError(t, os.WriteFile(corrupt, []byte("format: turnabout-project\nversion: 99\n"), 0o600))

	err := ws.Open(ctx, corrupt)
	var parseErr *project.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Same(t, doc, ws.Current())

	err = ws.Open(ctx, filepath.Join(dir, "missing.cprjt"))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Same(t, doc, ws.Current())
}

func TestWorkspace_Export(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}
	ws := newWorkspace(history)
	doc := exportableCase(t)
	ws.Replace(doc)
	path := filepath.Join(t.TempDir(), "samurai.pwcx")

	result, err := ws.Export(ctx, path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, result.Artifact, data)
	_, err = export.Decode(data)
	require.NoError(t, err)

	require.Len(t, history.exports, 1)
	record := history.exports[0]
	require.Equal(t, doc.ID().String(), record.CaseID)
	require.Equal(t, int64(len(data)), record.Size)
	require.Len(t, record.Checksum, 16)
	require.Equal(t, int64(2), record.Instructions)

	t.Run("failed export leaves the previous artifact untouched", func(t *testing.T) {
		s, err := doc.ScriptDocument(1, script.PhaseTrial)
		require.NoError(t, err)
		_, err = s.InsertBlock(0, script.TextBlock{Text: "?", Speaker: "chr-404"})
		require.NoError(t, err)

		_, err = ws.Export(ctx, path)
		var exportErr *export.ExportError
		require.ErrorAs(t, err, &exportErr)
		require.Equal(t, casedoc.IssueDanglingReference, exportErr.Kind)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, data, after)
		require.Len(t, history.exports, 1)
	})
}
