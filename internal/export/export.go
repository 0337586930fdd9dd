// Package export turns a validated case into the compact artifact read by the playback runtime.
package export

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/script"
)

// ExportError is returned when validation finds a fatal issue. Kind and Offending describe the
// first one; Issues holds every fatal issue found.
type ExportError struct {
	Kind      casedoc.IssueKind
	Offending entity.Ref
	Issues    []casedoc.Issue
}

func (e *ExportError) Error() string {
	if e.Offending.IsZero() {
		return fmt.Sprintf("export: %s (%d fatal issues)", e.Kind, len(e.Issues))
	}
	return fmt.Sprintf("export: %s at %s (%d fatal issues)", e.Kind, e.Offending, len(e.Issues))
}

// Result is a finished export.
type Result struct {
	Artifact     []byte
	Warnings     []casedoc.Issue
	Instructions int
	Assets       int
	// Checksum is the xxhash64 of the payload, as stored in the artifact trailer.
	Checksum uint64
}

type Pipeline struct {
	logger *slog.Logger
}

func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: logger.With("source", "export")}
}

// Export validates doc and encodes it. The caller must not mutate doc while Export runs. On
// error no artifact is returned.
func (p *Pipeline) Export(ctx context.Context, doc *casedoc.Document) (Result, error) {
	var result Result
	issues := doc.Validate()
	if fatal := casedoc.Fatal(issues); len(fatal) > 0 {
		first := fatal[0]
		offending := first.Target
		if offending.IsZero() {
			offending = first.Subject
		}
		p.logger.LogAttrs(ctx, slog.LevelDebug, "export refused",
			slog.String("kind", string(first.Kind)), slog.Int("fatal", len(fatal)))
		return result, &ExportError{Kind: first.Kind, Offending: offending, Issues: fatal}
	}
	result.Warnings = casedoc.Warnings(issues)
	for _, w := range result.Warnings {
		p.logger.LogAttrs(ctx, slog.LevelDebug, "export warning",
			slog.String("kind", string(w.Kind)), slog.String("subject", w.Subject.String()))
	}

	a, err := build(ctx, doc)
	if err != nil {
		return Result{}, err
	}
	data, err := encode(a)
	if err != nil {
		return Result{}, errors.Wrap(err, "encode artifact", slog.String("case_id", doc.ID().String()))
	}
	result.Artifact = data
	result.Checksum = binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	result.Assets = len(a.Assets)
	for _, s := range a.Segments {
		result.Instructions += len(s.Instructions)
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "exported case",
		slog.String("case_id", doc.ID().String()),
		slog.Int("bytes", len(data)),
		slog.Int("instructions", result.Instructions),
		slog.Int("assets", result.Assets),
		slog.Int("warnings", len(result.Warnings)))
	return result, nil
}

// builder resolves entity IDs to table indices.
type builder struct {
	characters map[entity.CharacterID]int
	locations  map[entity.LocationID]int
	assets     map[entity.AssetID]int
	evidence   map[entity.EvidenceID]int
}

func build(ctx context.Context, doc *casedoc.Document) (*Artifact, error) {
	store := doc.Entities()
	info := doc.Info()
	b := builder{
		characters: map[entity.CharacterID]int{},
		locations:  map[entity.LocationID]int{},
		assets:     map[entity.AssetID]int{},
		evidence:   map[entity.EvidenceID]int{},
	}
	a := &Artifact{
		CaseID:       doc.ID().String(),
		Name:         info.Name,
		Author:       info.Author,
		Days:         doc.Days(),
		TextboxAlpha: info.Overrides.TextboxAlpha,
		TitleScreen:  -1,
		InitialBlock: string(info.InitialBlock),
		Characters:   nil,
		Locations:    nil,
		Assets:       nil,
		Evidence:     nil,
		Testimonies:  nil,
		Segments:     nil,
	}

	sprites := map[string]entity.AssetID{}
	for _, asset := range store.Assets() {
		if _, ok := sprites[asset.Name]; asset.Kind == entity.AssetSprite && !ok {
			sprites[asset.Name] = asset.ID
		}
	}
	for _, asset := range store.Assets() {
		if !used(doc, asset, sprites) {
			continue
		}
		b.assets[asset.ID] = len(a.Assets)
		a.Assets = append(a.Assets, Asset{
			ID:        string(asset.ID),
			Name:      asset.Name,
			Kind:      string(asset.Kind),
			MediaType: asset.MediaType,
			Data:      asset.Data,
		})
	}
	a.TitleScreen = b.asset(info.Overrides.TitleScreen)

	for _, c := range store.Characters() {
		b.characters[c.ID] = len(a.Characters)
		profile := -1
		if c.ProfileEnabled {
			profile = b.asset(c.ProfileImage)
		}
		a.Characters = append(a.Characters, Character{
			ID:          string(c.ID),
			Name:        c.Name,
			Gender:      string(c.Gender),
			Caption:     c.Caption,
			Description: c.Description,
			Sprite:      b.asset(sprites[c.SpriteName]),
			SpriteName:  c.SpriteName,
			Profile:     profile,
		})
	}
	for _, l := range store.Locations() {
		b.locations[l.ID] = len(a.Locations)
		loc := Location{
			ID:       string(l.ID),
			Name:     l.Name,
			Preview:  b.asset(l.PreviewImage),
			Hotspots: nil,
		}
		for _, h := range l.Hotspots {
			loc.Hotspots = append(loc.Hotspots, Hotspot{X: h.X, Y: h.Y, Width: h.Width, Height: h.Height, Block: h.Block})
		}
		a.Locations = append(a.Locations, loc)
	}
	for _, e := range store.EvidenceList() {
		b.evidence[e.ID] = len(a.Evidence)
		a.Evidence = append(a.Evidence, Evidence{
			ID:          string(e.ID),
			Name:        e.Name,
			Caption:     e.Caption,
			Description: e.Description,
			Image:       b.asset(e.Image),
			CheckImage:  b.asset(e.CheckImage),
		})
	}
	for _, t := range store.Testimonies() {
		a.Testimonies = append(a.Testimonies, b.testimony(t))
	}

	for _, s := range doc.Scripts() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "export cancelled", slog.String("key", s.Key().String()))
		}
		segment := Segment{Day: s.Key().Day, Phase: string(s.Key().Phase), Instructions: make([]Instruction, 0, s.Len())}
		for _, block := range s.Blocks() {
			segment.Instructions = append(segment.Instructions, b.instruction(block))
		}
		if a.InitialBlock == "" && len(segment.Instructions) > 0 {
			a.InitialBlock = segment.Instructions[0].Block
		}
		a.Segments = append(a.Segments, segment)
	}
	return a, nil
}

func (b *builder) instruction(block script.TextBlock) Instruction {
	op := OpSay
	if block.Kind == script.BlockNarration {
		op = OpNarrate
	}
	return Instruction{
		Op:       op,
		Block:    string(block.ID),
		Speaker:  index(b.characters, block.Speaker),
		Location: index(b.locations, block.Location),
		Time:     block.TimeTag,
		Text:     block.Text,
	}
}

func (b *builder) testimony(t entity.Testimony) Testimony {
	out := Testimony{
		ID:              string(t.ID),
		Title:           t.Title,
		Speaker:         index(b.characters, t.Speaker),
		NextBlock:       t.NextBlock,
		FollowLocation:  index(b.locations, t.FollowLocation),
		CrossExamineEnd: t.CrossExamineEnd,
		Pieces:          make([]Piece, 0, len(t.Pieces)),
	}
	for _, p := range t.Pieces {
		out.Pieces = append(out.Pieces, Piece{
			Text:            p.Text,
			PresentEvidence: index(b.evidence, p.PresentEvidence),
			PresentBlock:    p.PresentBlock,
			PressBlock:      p.PressBlock,
			Hidden:          p.Hidden,
		})
	}
	return out
}

func (b *builder) asset(id entity.AssetID) int {
	return index(b.assets, id)
}

func index[K comparable](m map[K]int, key K) int {
	if i, ok := m[key]; ok {
		return i
	}
	return -1
}

// used reports whether the asset is reachable from the exported case.
func used(doc *casedoc.Document, asset entity.Asset, sprites map[string]entity.AssetID) bool {
	if doc.References(entity.AssetRef(asset.ID)) > 0 {
		return true
	}
	store := doc.Entities()
	if len(store.AssetUsers(asset.ID)) > 0 {
		return true
	}
	for _, c := range store.Characters() {
		if c.SpriteName != "" && sprites[c.SpriteName] == asset.ID {
			return true
		}
	}
	return false
}
