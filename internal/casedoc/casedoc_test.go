package casedoc_test

import (
	"testing"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/script"
	"github.com/stretchr/testify/require"
)

func newCase(t *testing.T, days int) *casedoc.Document {
	t.Helper()
	doc, err := casedoc.New("The First Turnabout", "Capcom", days)
	require.NoError(t, err)
	return doc
}

func scriptOf(t *testing.T, doc *casedoc.Document, day int, phase script.Phase) *script.Document {
	t.Helper()
	s, err := doc.ScriptDocument(day, phase)
	require.NoError(t, err)
	return s
}

func TestDocument_GapFreeDays(t *testing.T) {
	doc := newCase(t, 1)
	require.NoError(t, doc.SetDuration(5))
	for day := 1; day <= 5; day++ {
		for _, phase := range script.Phases {
			s, err := doc.ScriptDocument(day, phase)
			require.NoError(t, err)
			require.Equal(t, script.Key{Day: day, Phase: phase}, s.Key())
			require.Zero(t, s.Len())
		}
	}
	require.Len(t, doc.Scripts(), 10)

	_, err := doc.ScriptDocument(6, script.PhaseTrial)
	require.ErrorIs(t, err, casedoc.ErrDayOutOfRange)
	_, err = doc.ScriptDocument(0, script.PhaseTrial)
	require.ErrorIs(t, err, casedoc.ErrDayOutOfRange)
	_, err = doc.ScriptDocument(1, "cross-examination")
	require.ErrorIs(t, err, casedoc.ErrDayOutOfRange)
}

func TestDocument_SetDuration(t *testing.T) {
	tests := []struct {
		name         string
		populatedDay int
		days         int
		wantErr      error
	}{
		{name: "grow", populatedDay: 5, days: 7},
		{name: "shrink to populated day", populatedDay: 5, days: 5},
		{name: "shrink below populated day", populatedDay: 5, days: 3, wantErr: casedoc.ErrInvalidDuration},
		{name: "shrink empty days", populatedDay: 2, days: 3},
		{name: "zero", populatedDay: 1, days: 0, wantErr: casedoc.ErrInvalidDuration},
		{name: "negative", populatedDay: 1, days: -1, wantErr: casedoc.ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newCase(t, 5)
			_, err := scriptOf(t, doc, tt.populatedDay, script.PhaseTrial).InsertBlock(0, script.TextBlock{Text: "..."})
			require.NoError(t, err)

			err = doc.SetDuration(tt.days)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, 5, doc.Days())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.days, doc.Days())
			require.Len(t, doc.Scripts(), 2*tt.days)
		})
	}
}

func TestDocument_RegrowingDoesNotReuseBlockIDs(t *testing.T) {
	doc := newCase(t, 2)
	trial := scriptOf(t, doc, 2, script.PhaseTrial)
	id, err := trial.InsertBlock(0, script.TextBlock{Text: "Hold it!"})
	require.NoError(t, err)
	require.Equal(t, script.BlockID("d2t.1"), id)
	_, err = trial.RemoveBlock(0)
	require.NoError(t, err)

	require.NoError(t, doc.SetDuration(1))
	retired := map[script.Key]uint64{{Day: 2, Phase: script.PhaseTrial}: 1}
	require.Equal(t, retired, doc.Snapshot().RetiredCounters)

	t.Run("survives a snapshot", func(t *testing.T) {
		restored, err := casedoc.FromSnapshot(doc.Snapshot())
		require.NoError(t, err)
		require.NoError(t, restored.SetDuration(2))
		id, err := scriptOf(t, restored, 2, script.PhaseTrial).InsertBlock(0, script.TextBlock{Text: "Objection!"})
		require.NoError(t, err)
		require.Equal(t, script.BlockID("d2t.2"), id)
		require.Nil(t, restored.Snapshot().RetiredCounters)
	})

	t.Run("rejects retired counters inside the duration", func(t *testing.T) {
		snap := doc.Snapshot()
		snap.RetiredCounters = map[script.Key]uint64{{Day: 1, Phase: script.PhaseTrial}: 3}
		_, err := casedoc.FromSnapshot(snap)
		require.ErrorIs(t, err, casedoc.ErrDayOutOfRange)
	})
}

func TestDocument_BlockIDsAreUniqueAcrossTheCase(t *testing.T) {
	doc := newCase(t, 2)
	_, err := scriptOf(t, doc, 1, script.PhaseInvestigation).InsertBlock(0, script.TextBlock{ID: "shared", Text: "x"})
	require.NoError(t, err)

	for _, key := range []script.Key{{Day: 1, Phase: script.PhaseTrial}, {Day: 2, Phase: script.PhaseInvestigation}} {
		_, err = scriptOf(t, doc, key.Day, key.Phase).InsertBlock(0, script.TextBlock{ID: "shared", Text: "y"})
		require.ErrorIs(t, err, script.ErrDuplicateBlock, key.String())
	}

	s, i, ok := doc.FindBlock("shared")
	require.True(t, ok)
	require.Equal(t, script.Key{Day: 1, Phase: script.PhaseInvestigation}, s.Key())
	require.Equal(t, 0, i)
	require.Equal(t, 1, doc.BlockCount())
}

func TestDocument_ReferentialIntegrity(t *testing.T) {
	doc := newCase(t, 2)
	store := doc.Entities()
	phoenix := store.AddCharacter(entity.Character{Name: "Phoenix Wright", Gender: entity.GenderMale})

	day1 := scriptOf(t, doc, 1, script.PhaseInvestigation)
	day2 := scriptOf(t, doc, 2, script.PhaseTrial)
	_, err := day1.InsertBlock(0, script.TextBlock{Text: "Hmm...", Speaker: phoenix})
	require.NoError(t, err)
	_, err = day2.InsertBlock(0, script.TextBlock{Text: "{*show_character:" + string(phoenix) + ";*}Objection!"})
	require.NoError(t, err)

	require.ErrorIs(t, store.RemoveCharacter(phoenix), entity.ErrInUse)

	_, err = day1.RemoveBlock(0)
	require.NoError(t, err)
	require.ErrorIs(t, store.RemoveCharacter(phoenix), entity.ErrInUse, "still referenced on day 2")

	_, err = day2.RemoveBlock(0)
	require.NoError(t, err)
	require.NoError(t, store.RemoveCharacter(phoenix))
}

func TestDocument_TitleScreenKeepsAsset(t *testing.T) {
	doc := newCase(t, 1)
	title := doc.Entities().AddAsset(entity.Asset{Name: "title.png", Kind: entity.AssetImage, Data: []byte{1}})
	info := doc.Info()
	info.Overrides.TitleScreen = title
	doc.SetInfo(info)

	require.ErrorIs(t, doc.Entities().RemoveAsset(title), entity.ErrInUse)
}

func TestDocument_Subscribe(t *testing.T) {
	doc := newCase(t, 1)
	var kinds []casedoc.ChangeKind
	unsubscribe := doc.Subscribe(func(c casedoc.Change) { kinds = append(kinds, c.Kind) })

	id := doc.Entities().AddLocation(entity.Location{Name: "Courtroom No. 2"})
	_, err := scriptOf(t, doc, 1, script.PhaseTrial).InsertBlock(0, script.TextBlock{Text: "...", Location: id})
	require.NoError(t, err)
	require.NoError(t, doc.SetDuration(2))
	require.Error(t, doc.SetDuration(0))
	doc.SetInfo(doc.Info())

	unsubscribe()
	doc.Entities().AddLocation(entity.Location{Name: "Lobby"})

	require.Equal(t, []casedoc.ChangeKind{
		casedoc.ChangeEntity,
		casedoc.ChangeScript,
		casedoc.ChangeDuration,
		casedoc.ChangeInfo,
	}, kinds)
}

func TestFromSnapshot(t *testing.T) {
	doc := newCase(t, 2)
	info := doc.Info()
	info.Extra = map[string]any{"music_volume": 80}
	doc.SetInfo(info)
	maya := doc.Entities().AddCharacter(entity.Character{Name: "Maya Fey", Gender: entity.GenderFemale})
	s := scriptOf(t, doc, 2, script.PhaseInvestigation)
	_, err := s.InsertBlock(0, script.TextBlock{Text: "Nick!", Speaker: maya})
	require.NoError(t, err)

	restored, err := casedoc.FromSnapshot(doc.Snapshot())
	require.NoError(t, err)
	require.Equal(t, doc.Snapshot(), restored.Snapshot())
	require.Equal(t, doc.ID(), restored.ID())
	require.ErrorIs(t, restored.Entities().RemoveCharacter(maya), entity.ErrInUse, "reference index is rebuilt")

	t.Run("info extra is deep copied", func(t *testing.T) {
		info := doc.Info()
		info.Extra["palette"] = map[string]any{"textbox": []any{"blue"}}
		doc.SetInfo(info)

		got := doc.Info()
		got.Extra["palette"].(map[string]any)["textbox"].([]any)[0] = "red" //nolint:forcetypeassert // set above.
		require.Equal(t, []any{"blue"}, doc.Info().Extra["palette"].(map[string]any)["textbox"])
	})

	t.Run("rejects scripts outside of the duration", func(t *testing.T) {
		snap := doc.Snapshot()
		snap.Days = 1
		_, err := casedoc.FromSnapshot(snap)
		require.ErrorIs(t, err, casedoc.ErrDayOutOfRange)
	})

	t.Run("rejects zero days", func(t *testing.T) {
		snap := doc.Snapshot()
		snap.Days = 0
		_, err := casedoc.FromSnapshot(snap)
		require.ErrorIs(t, err, casedoc.ErrInvalidDuration)
	})
}
