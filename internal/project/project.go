// Package project reads and writes the re-editable project file of a case.
//
// The file is a single YAML document. Entity and block IDs, block order and text are kept
// exactly, and keys unknown to this version are carried through a load/save cycle untouched.
package project

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/script"
	"gopkg.in/yaml.v3"
)

// Encode writes doc to w as a project file.
func Encode(w io.Writer, doc *casedoc.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd // two spaces.
	if err := enc.Encode(toFile(doc.Snapshot())); err != nil {
		return errors.Wrap(err, "encode project", slog.String("case_id", doc.ID().String()))
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "close project encoder")
	}
	return nil
}

func Marshal(doc *casedoc.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a project file from r. Malformed or unsupported input yields a *ParseError.
func Decode(r io.Reader) (*casedoc.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read project")
	}
	return Unmarshal(data)
}

func Unmarshal(data []byte) (*casedoc.Document, error) {
	p := parser{data: data, root: yaml.Node{}} //nolint:exhaustruct // decoded below.
	if err := yaml.Unmarshal(data, &p.root); err != nil {
		return nil, p.fromYAMLError(err)
	}
	if len(p.root.Content) == 0 {
		return nil, p.errorAt(nil, "empty project file")
	}
	if p.root.Content[0].Kind != yaml.MappingNode {
		return nil, p.errorAt(p.root.Content[0], "project file is not a mapping")
	}
	mapping := p.root.Content[0]
	if err := p.checkHeader(mapping); err != nil {
		return nil, err
	}
	if err := p.migrate(mapping); err != nil {
		return nil, err
	}

	f := file{TextboxAlpha: casedoc.DefaultTextboxAlpha} //nolint:exhaustruct // decoded below.
	if err := mapping.Decode(&f); err != nil {
		return nil, p.fromYAMLError(err)
	}
	snap, err := p.toSnapshot(mapping, f)
	if err != nil {
		return nil, err
	}
	doc, err := casedoc.FromSnapshot(snap)
	if err != nil {
		return nil, &ParseError{Offset: 0, Line: 0, Reason: "inconsistent case", Err: err}
	}
	return doc, nil
}

func toFile(snap casedoc.Snapshot) file {
	ents := snap.Entities
	f := file{
		Format:       Format,
		Version:      Version,
		ID:           snap.CaseID.String(),
		Name:         text(snap.Info.Name),
		Author:       text(snap.Info.Author),
		Days:         snap.Days,
		InitialBlock: snap.Info.InitialBlock,
		TextboxAlpha: snap.Info.Overrides.TextboxAlpha,
		TitleScreen:  snap.Info.Overrides.TitleScreen,
		Counters: counters{
			Character: ents.Counters.Character,
			Location:  ents.Counters.Location,
			Asset:     ents.Counters.Asset,
			Evidence:  ents.Counters.Evidence,
			Testimony: ents.Counters.Testimony,
		},
		Characters:      nil,
		Locations:       nil,
		Assets:          nil,
		Evidence:        nil,
		Testimonies:     nil,
		Scripts:         nil,
		RetiredCounters: nil,
		Extra:           quoteExtra(snap.Info.Extra),
	}
	for _, c := range ents.Characters {
		f.Characters = append(f.Characters, character{
			ID:             c.ID,
			Name:           text(c.Name),
			Gender:         c.Gender,
			Caption:        text(c.Caption),
			Description:    text(c.Description),
			SpriteName:     text(c.SpriteName),
			ProfileEnabled: c.ProfileEnabled,
			ProfileImage:   c.ProfileImage,
			Extra:          quoteExtra(c.Extra),
		})
	}
	for _, l := range ents.Locations {
		loc := location{
			ID:           l.ID,
			Name:         text(l.Name),
			PreviewImage: l.PreviewImage,
			Hotspots:     nil,
			Extra:        quoteExtra(l.Extra),
		}
		for _, h := range l.Hotspots {
			loc.Hotspots = append(loc.Hotspots, hotspot(h))
		}
		f.Locations = append(f.Locations, loc)
	}
	for _, a := range ents.Assets {
		f.Assets = append(f.Assets, asset{
			ID:        a.ID,
			Name:      text(a.Name),
			Kind:      a.Kind,
			MediaType: text(a.MediaType),
			Data:      base64.StdEncoding.EncodeToString(a.Data),
			Extra:     quoteExtra(a.Extra),
		})
	}
	for _, e := range ents.Evidence {
		f.Evidence = append(f.Evidence, evidence{
			ID:          e.ID,
			Name:        text(e.Name),
			Caption:     text(e.Caption),
			Description: text(e.Description),
			Image:       e.Image,
			CheckImage:  e.CheckImage,
			Extra:       quoteExtra(e.Extra),
		})
	}
	for _, t := range ents.Testimonies {
		tst := testimony{
			ID:              t.ID,
			Title:           text(t.Title),
			Speaker:         t.Speaker,
			NextBlock:       t.NextBlock,
			FollowLocation:  t.FollowLocation,
			CrossExamineEnd: t.CrossExamineEnd,
			Pieces:          nil,
			Extra:           quoteExtra(t.Extra),
		}
		for _, pc := range t.Pieces {
			tst.Pieces = append(tst.Pieces, piece{
				Text:            text(pc.Text),
				PresentEvidence: pc.PresentEvidence,
				PresentBlock:    pc.PresentBlock,
				PressBlock:      pc.PressBlock,
				Hidden:          pc.Hidden,
			})
		}
		f.Testimonies = append(f.Testimonies, tst)
	}
	for _, s := range snap.Scripts {
		entry := scriptEntry{Day: s.Key.Day, Phase: s.Key.Phase, Counter: s.Counter, Blocks: nil}
		for _, b := range s.Blocks {
			entry.Blocks = append(entry.Blocks, block{
				ID:          b.ID,
				Kind:        b.Kind,
				Text:        text(b.Text),
				Speaker:     b.Speaker,
				Location:    b.Location,
				TimeTag:     text(b.TimeTag),
				Description: text(b.Description),
				Extra:       quoteExtra(b.Extra),
			})
		}
		f.Scripts = append(f.Scripts, entry)
	}
	for _, key := range slices.SortedFunc(maps.Keys(snap.RetiredCounters), script.Key.Compare) {
		f.RetiredCounters = append(f.RetiredCounters, scriptCounter{
			Day:     key.Day,
			Phase:   key.Phase,
			Counter: snap.RetiredCounters[key],
		})
	}
	return f
}

// toSnapshot converts the decoded file and reports problems at the position of the offending
// record.
func (p *parser) toSnapshot(mapping *yaml.Node, f file) (casedoc.Snapshot, error) {
	var snap casedoc.Snapshot
	id, err := uuid.Parse(f.ID)
	if err != nil {
		return snap, p.wrapAt(lookup(mapping, "id"), "invalid case id", err)
	}
	snap = casedoc.Snapshot{
		CaseID: id,
		Info: casedoc.Info{
			Name:         string(f.Name),
			Author:       string(f.Author),
			InitialBlock: f.InitialBlock,
			Overrides:    casedoc.Overrides{TextboxAlpha: f.TextboxAlpha, TitleScreen: f.TitleScreen},
			Extra:        f.Extra,
		},
		Days: f.Days,
		Entities: entity.Snapshot{
			Counters: entity.Counters{
				Character: f.Counters.Character,
				Location:  f.Counters.Location,
				Asset:     f.Counters.Asset,
				Evidence:  f.Counters.Evidence,
				Testimony: f.Counters.Testimony,
			},
			Characters:  nil,
			Locations:   nil,
			Assets:      nil,
			Evidence:    nil,
			Testimonies: nil,
		},
		Scripts:         nil,
		RetiredCounters: nil,
	}
	if f.Days < 1 {
		return snap, p.errorAt(lookup(mapping, "days"), "case must last at least one day")
	}

	seen := map[entity.Ref]bool{}
	check := func(ref entity.Ref) string {
		if ref.IsZero() {
			return "missing id"
		}
		if seen[ref] {
			return "duplicate id " + ref.ID
		}
		seen[ref] = true
		return ""
	}
	for i, c := range f.Characters {
		if reason := check(entity.CharacterRef(c.ID)); reason != "" {
			return snap, p.errorAt(item(mapping, "characters", i), reason)
		}
		snap.Entities.Characters = append(snap.Entities.Characters, entity.Character{
			ID:             c.ID,
			Name:           string(c.Name),
			Gender:         c.Gender,
			Caption:        string(c.Caption),
			Description:    string(c.Description),
			SpriteName:     string(c.SpriteName),
			ProfileEnabled: c.ProfileEnabled,
			ProfileImage:   c.ProfileImage,
			Extra:          c.Extra,
		})
	}
	for i, l := range f.Locations {
		if reason := check(entity.LocationRef(l.ID)); reason != "" {
			return snap, p.errorAt(item(mapping, "locations", i), reason)
		}
		loc := entity.Location{
			ID:           l.ID,
			Name:         string(l.Name),
			PreviewImage: l.PreviewImage,
			Hotspots:     nil,
			Extra:        l.Extra,
		}
		for _, h := range l.Hotspots {
			loc.Hotspots = append(loc.Hotspots, entity.Hotspot(h))
		}
		snap.Entities.Locations = append(snap.Entities.Locations, loc)
	}
	for i, a := range f.Assets {
		if reason := check(entity.AssetRef(a.ID)); reason != "" {
			return snap, p.errorAt(item(mapping, "assets", i), reason)
		}
		data, decodeErr := base64.StdEncoding.DecodeString(a.Data)
		if decodeErr != nil {
			return snap, p.wrapAt(item(mapping, "assets", i), "invalid asset data", decodeErr)
		}
		snap.Entities.Assets = append(snap.Entities.Assets, entity.Asset{
			ID:        a.ID,
			Name:      string(a.Name),
			Kind:      a.Kind,
			MediaType: string(a.MediaType),
			Data:      data,
			Extra:     a.Extra,
		})
	}
	for i, e := range f.Evidence {
		if reason := check(entity.EvidenceRef(e.ID)); reason != "" {
			return snap, p.errorAt(item(mapping, "evidence", i), reason)
		}
		snap.Entities.Evidence = append(snap.Entities.Evidence, entity.Evidence{
			ID:          e.ID,
			Name:        string(e.Name),
			Caption:     string(e.Caption),
			Description: string(e.Description),
			Image:       e.Image,
			CheckImage:  e.CheckImage,
			Extra:       e.Extra,
		})
	}
	for i, t := range f.Testimonies {
		if reason := check(entity.TestimonyRef(t.ID)); reason != "" {
			return snap, p.errorAt(item(mapping, "testimonies", i), reason)
		}
		tst := entity.Testimony{
			ID:              t.ID,
			Title:           string(t.Title),
			Speaker:         t.Speaker,
			NextBlock:       t.NextBlock,
			FollowLocation:  t.FollowLocation,
			CrossExamineEnd: t.CrossExamineEnd,
			Pieces:          nil,
			Extra:           t.Extra,
		}
		for _, pc := range t.Pieces {
			tst.Pieces = append(tst.Pieces, entity.TestimonyPiece{
				Text:            string(pc.Text),
				PresentEvidence: pc.PresentEvidence,
				PresentBlock:    pc.PresentBlock,
				PressBlock:      pc.PressBlock,
				Hidden:          pc.Hidden,
			})
		}
		snap.Entities.Testimonies = append(snap.Entities.Testimonies, tst)
	}

	keys := map[script.Key]bool{}
	for i, s := range f.Scripts {
		key := script.Key{Day: s.Day, Phase: s.Phase}
		if key.Day < 1 || key.Day > f.Days || !key.Phase.Valid() {
			return snap, p.errorAt(item(mapping, "scripts", i), "script "+key.String()+" outside of the case")
		}
		if keys[key] {
			return snap, p.errorAt(item(mapping, "scripts", i), "duplicate script "+key.String())
		}
		keys[key] = true
		entry := casedoc.ScriptSnapshot{Key: key, Counter: s.Counter, Blocks: nil}
		for j, b := range s.Blocks {
			if reason := check(script.BlockRef(b.ID)); reason != "" {
				return snap, p.errorAt(blockItem(mapping, i, j), reason)
			}
			entry.Blocks = append(entry.Blocks, script.TextBlock{
				ID:          b.ID,
				Kind:        b.Kind,
				Text:        string(b.Text),
				Speaker:     b.Speaker,
				Location:    b.Location,
				TimeTag:     string(b.TimeTag),
				Description: string(b.Description),
				Extra:       b.Extra,
			})
		}
		snap.Scripts = append(snap.Scripts, entry)
	}
	for i, c := range f.RetiredCounters {
		key := script.Key{Day: c.Day, Phase: c.Phase}
		if key.Day <= f.Days || !key.Phase.Valid() {
			return snap, p.errorAt(item(mapping, "retired_counters", i), "retired counter "+key.String()+" inside of the case")
		}
		if snap.RetiredCounters == nil {
			snap.RetiredCounters = map[script.Key]uint64{}
		}
		snap.RetiredCounters[key] = c.Counter
	}
	return snap, nil
}
