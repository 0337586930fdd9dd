package entity_test

import (
	"testing"

	"github.com/myrjola/turnabout/internal/entity"
	"github.com/stretchr/testify/require"
)

type fakeRefs map[entity.Ref]int

func (f fakeRefs) References(ref entity.Ref) int {
	return f[ref]
}

func TestStore_CharacterLifecycle(t *testing.T) {
	store := entity.NewStore()
	refs := fakeRefs{}
	store.SetReferenceCounter(refs)
	var changes []entity.Change
	store.OnChange(func(c entity.Change) { changes = append(changes, c) })

	phoenix := store.AddCharacter(entity.Character{ID: "ignored", Name: "Phoenix Wright"})
	maya := store.AddCharacter(entity.Character{Name: "Maya Fey", Gender: entity.GenderFemale})
	require.Equal(t, entity.CharacterID("chr-1"), phoenix)
	require.Equal(t, entity.CharacterID("chr-2"), maya)

	got, err := store.Character(phoenix)
	require.NoError(t, err)
	require.Equal(t, entity.GenderUnknown, got.Gender, "empty gender defaults to unknown")

	got.Caption = "Defense attorney"
	require.NoError(t, store.UpdateCharacter(phoenix, got))
	got, err = store.Character(phoenix)
	require.NoError(t, err)
	require.Equal(t, "Defense attorney", got.Caption)

	refs[entity.CharacterRef(maya)] = 2
	require.ErrorIs(t, store.RemoveCharacter(maya), entity.ErrInUse)
	require.True(t, store.HasCharacter(maya))

	delete(refs, entity.CharacterRef(maya))
	require.NoError(t, store.RemoveCharacter(maya))
	require.False(t, store.HasCharacter(maya))
	require.ErrorIs(t, store.RemoveCharacter(maya), entity.ErrNotFound)
	require.ErrorIs(t, store.UpdateCharacter(maya, entity.Character{}), entity.ErrNotFound)

	// IDs are never reused after deletion.
	edgeworth := store.AddCharacter(entity.Character{Name: "Miles Edgeworth"})
	require.Equal(t, entity.CharacterID("chr-3"), edgeworth)

	require.Equal(t, []entity.Change{
		{Op: entity.OpAdded, Ref: entity.CharacterRef(phoenix)},
		{Op: entity.OpAdded, Ref: entity.CharacterRef(maya)},
		{Op: entity.OpUpdated, Ref: entity.CharacterRef(phoenix)},
		{Op: entity.OpRemoved, Ref: entity.CharacterRef(maya)},
		{Op: entity.OpAdded, Ref: entity.CharacterRef(edgeworth)},
	}, changes, "failed operations do not notify")
}

func TestStore_RemoveAssetInUse(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *entity.Store, refs fakeRefs, id entity.AssetID)
		wantErr error
	}{
		{
			name:    "unused asset",
			setup:   func(*entity.Store, fakeRefs, entity.AssetID) {},
			wantErr: nil,
		},
		{
			name: "profile picture",
			setup: func(s *entity.Store, _ fakeRefs, id entity.AssetID) {
				s.AddCharacter(entity.Character{Name: "Maya", ProfileEnabled: true, ProfileImage: id})
			},
			wantErr: entity.ErrInUse,
		},
		{
			name: "location preview",
			setup: func(s *entity.Store, _ fakeRefs, id entity.AssetID) {
				s.AddLocation(entity.Location{Name: "Fey & Co. Law Offices", PreviewImage: id})
			},
			wantErr: entity.ErrInUse,
		},
		{
			name: "script trigger",
			setup: func(_ *entity.Store, refs fakeRefs, id entity.AssetID) {
				refs[entity.AssetRef(id)] = 1
			},
			wantErr: entity.ErrInUse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := entity.NewStore()
			refs := fakeRefs{}
			store.SetReferenceCounter(refs)
			id := store.AddAsset(entity.Asset{Name: "maya.png", Kind: entity.AssetImage, Data: []byte{1}})
			tt.setup(store, refs, id)

			err := store.RemoveAsset(id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.True(t, store.HasAsset(id))
				return
			}
			require.NoError(t, err)
			require.False(t, store.HasAsset(id))
		})
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := entity.NewStore()
	id := store.AddAsset(entity.Asset{Name: "a", Kind: entity.AssetImage, Data: []byte("png"), Extra: map[string]any{"k": "v"}})

	a, err := store.Asset(id)
	require.NoError(t, err)
	a.Data[0] = 'x'
	a.Extra["k"] = "changed"

	again, err := store.Asset(id)
	require.NoError(t, err)
	require.Equal(t, []byte("png"), again.Data)
	require.Equal(t, map[string]any{"k": "v"}, again.Extra)
}

func TestStore_OrderedListing(t *testing.T) {
	store := entity.NewStore()
	for range 11 {
		store.AddLocation(entity.Location{Name: "somewhere"})
	}
	locations := store.Locations()
	require.Len(t, locations, 11)
	require.Equal(t, entity.LocationID("loc-1"), locations[0].ID)
	require.Equal(t, entity.LocationID("loc-2"), locations[1].ID)
	require.Equal(t, entity.LocationID("loc-11"), locations[10].ID)
}

func TestRestore(t *testing.T) {
	store := entity.NewStore()
	store.AddCharacter(entity.Character{Name: "Phoenix"})
	gone := store.AddCharacter(entity.Character{Name: "Larry"})
	require.NoError(t, store.RemoveCharacter(gone))
	store.AddAsset(entity.Asset{Name: "bg", Kind: entity.AssetImage, Data: []byte{1, 2}})
	store.AddEvidence(entity.Evidence{Name: "Badge"})
	store.AddTestimony(entity.Testimony{Title: "Alibi", Pieces: []entity.TestimonyPiece{{Text: "I was home."}}})

	restored, err := entity.Restore(store.Snapshot())
	require.NoError(t, err)
	require.Equal(t, store.Snapshot(), restored.Snapshot())
	require.Equal(t, entity.CharacterID("chr-3"), restored.AddCharacter(entity.Character{Name: "Gumshoe"}))
	require.Equal(t, entity.EvidenceID("evd-2"), restored.AddEvidence(entity.Evidence{Name: "Knife"}))
	require.Equal(t, entity.TestimonyID("tst-2"), restored.AddTestimony(entity.Testimony{Title: "Again"}))

	t.Run("raises counters below restored IDs", func(t *testing.T) {
		s, err := entity.Restore(entity.Snapshot{
			Locations: []entity.Location{{ID: "loc-7", Name: "Detention Center"}},
		})
		require.NoError(t, err)
		require.Equal(t, entity.LocationID("loc-8"), s.AddLocation(entity.Location{Name: "Courtroom"}))
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := entity.Restore(entity.Snapshot{
			Characters: []entity.Character{{ID: "chr-1"}, {ID: "chr-1"}},
		})
		require.ErrorIs(t, err, entity.ErrInvalidID)
	})
}

func TestCharacter_Validate(t *testing.T) {
	tests := []struct {
		name      string
		character entity.Character
		wantErr   bool
	}{
		{
			name:      "valid",
			character: entity.Character{Name: "Phoenix", Gender: entity.GenderMale},
		},
		{
			name:      "missing name",
			character: entity.Character{Gender: entity.GenderMale},
			wantErr:   true,
		},
		{
			name:      "unknown gender value",
			character: entity.Character{Name: "Phoenix", Gender: "robot"},
			wantErr:   true,
		},
		{
			name:      "profile enabled without image",
			character: entity.Character{Name: "Phoenix", Gender: entity.GenderMale, ProfileEnabled: true},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.character.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStore_EvidenceLifecycle(t *testing.T) {
	store := entity.NewStore()
	refs := fakeRefs{}
	store.SetReferenceCounter(refs)

	photo := store.AddAsset(entity.Asset{Name: "photo.png", Kind: entity.AssetImage, Data: []byte{1}})
	badge := store.AddEvidence(entity.Evidence{Name: "Attorney's Badge", Caption: "My badge", Image: photo})
	require.Equal(t, entity.EvidenceID("evd-1"), badge)
	require.True(t, store.Has(entity.EvidenceRef(badge)))

	require.ErrorIs(t, store.RemoveAsset(photo), entity.ErrInUse, "evidence image")
	require.Equal(t, []entity.Ref{entity.EvidenceRef(badge)}, store.AssetUsers(photo))

	refs[entity.EvidenceRef(badge)] = 1
	require.ErrorIs(t, store.RemoveEvidence(badge), entity.ErrInUse, "add_evidence trigger")
	delete(refs, entity.EvidenceRef(badge))

	e, err := store.Evidence(badge)
	require.NoError(t, err)
	e.Description = "Proof of my profession."
	require.NoError(t, store.UpdateEvidence(badge, e))
	require.Equal(t, "Proof of my profession.", store.EvidenceList()[0].Description)

	require.NoError(t, store.RemoveEvidence(badge))
	require.ErrorIs(t, store.RemoveEvidence(badge), entity.ErrNotFound)
	require.Equal(t, entity.EvidenceID("evd-2"), store.AddEvidence(entity.Evidence{Name: "Autopsy Report"}))
}

func TestStore_TestimonyHoldsReferences(t *testing.T) {
	store := entity.NewStore()
	witness := store.AddCharacter(entity.Character{Name: "April May"})
	hotel := store.AddLocation(entity.Location{Name: "Gatewater Hotel"})
	wiretap := store.AddEvidence(entity.Evidence{Name: "Wiretap"})
	id := store.AddTestimony(entity.Testimony{
		Title:          "What I Saw",
		Speaker:        witness,
		FollowLocation: hotel,
		Pieces: []entity.TestimonyPiece{
			{Text: "I was in my room all night.", PresentEvidence: wiretap, PresentBlock: "d2t.9"},
		},
	})
	require.Equal(t, entity.TestimonyID("tst-1"), id)

	require.ErrorIs(t, store.RemoveCharacter(witness), entity.ErrInUse)
	require.ErrorIs(t, store.RemoveLocation(hotel), entity.ErrInUse)
	require.ErrorIs(t, store.RemoveEvidence(wiretap), entity.ErrInUse)

	got, err := store.Testimony(id)
	require.NoError(t, err)
	got.Pieces[0].Text = "changed"
	again, err := store.Testimony(id)
	require.NoError(t, err)
	require.Equal(t, "I was in my room all night.", again.Pieces[0].Text, "pieces are copied")

	require.Contains(t, again.Links(), entity.Link{
		Field: "pieces.0.present_block", Ref: entity.Ref{Kind: entity.KindBlock, ID: "d2t.9"},
	})

	require.NoError(t, store.RemoveTestimony(id))
	require.NoError(t, store.RemoveCharacter(witness))
	require.NoError(t, store.RemoveEvidence(wiretap))
}

func TestLocation_Hotspots(t *testing.T) {
	l := entity.Location{
		Name:     "Fey & Co. Law Offices",
		Hotspots: []entity.Hotspot{{X: 10, Y: 20, Width: 30, Height: 40, Block: "d1i.3"}},
	}
	require.NoError(t, l.Validate())
	require.Equal(t, []entity.Link{
		{Field: "hotspots.0.block", Ref: entity.Ref{Kind: entity.KindBlock, ID: "d1i.3"}},
	}, l.Links())

	l.Hotspots[0].Width = 0
	require.Error(t, l.Validate())
}

func TestStore_ExtraIsDeepCopied(t *testing.T) {
	store := entity.NewStore()
	id := store.AddCharacter(entity.Character{
		Name: "Phoenix",
		Extra: map[string]any{
			"poses": []any{"normal", "point"},
			"voice": map[string]any{"pitch": 3},
		},
	})

	c, err := store.Character(id)
	require.NoError(t, err)
	c.Extra["poses"].([]any)[0] = "sweat"
	c.Extra["voice"].(map[string]any)["pitch"] = 9

	again, err := store.Character(id)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"poses": []any{"normal", "point"},
		"voice": map[string]any{"pitch": 3},
	}, again.Extra)
}
