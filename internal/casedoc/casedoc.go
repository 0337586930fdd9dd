// Package casedoc aggregates the metadata, entities and day/phase scripts of a case and keeps
// them consistent with each other.
package casedoc

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/notify"
	"github.com/myrjola/turnabout/internal/script"
)

var (
	ErrInvalidDuration = errors.NewSentinel("invalid duration")
	ErrDayOutOfRange   = errors.NewSentinel("day out of range")
	ErrDuplicateScript = errors.NewSentinel("duplicate script")
)

// DefaultTextboxAlpha lets the runtime pick its own text box opacity.
const DefaultTextboxAlpha = -1

// Overrides tweak the presentation of the case in the runtime.
type Overrides struct {
	TextboxAlpha int
	TitleScreen  entity.AssetID
}

// Info is the editable metadata of a case.
type Info struct {
	Name   string
	Author string
	// InitialBlock is where playback starts. The first block of day 1 is used when empty.
	InitialBlock script.BlockID
	Overrides    Overrides
	Extra        map[string]any
}

type ChangeKind string

const (
	ChangeInfo     ChangeKind = "info"
	ChangeDuration ChangeKind = "duration"
	ChangeEntity   ChangeKind = "entity"
	ChangeScript   ChangeKind = "script"
)

// Change is published to subscribers after every successful mutation. Only the field matching
// Kind is set.
type Change struct {
	Kind   ChangeKind
	Entity entity.Change
	Script script.Change
	Days   int
}

// Document is a complete case. It is not safe for concurrent use.
type Document struct {
	id      uuid.UUID
	info    Info
	days    int
	store   *entity.Store
	index   *script.RefIndex
	scripts map[script.Key]*script.Document
	// retired keeps the block counters of scripts dropped by shrinking the case, so that
	// growing it again never reissues their block IDs.
	retired map[script.Key]uint64
	hub     *notify.Hub[Change]
}

// New creates a case spanning days days with empty scripts for every day and phase.
func New(name, author string, days int) (*Document, error) {
	if days < 1 {
		return nil, errors.Wrap(ErrInvalidDuration, "new case", slog.Int("days", days))
	}
	d := newDocument(uuid.New(), entity.NewStore(), script.NewRefIndex())
	d.info = Info{
		Name:         name,
		Author:       author,
		InitialBlock: "",
		Overrides:    Overrides{TextboxAlpha: DefaultTextboxAlpha, TitleScreen: ""},
		Extra:        nil,
	}
	d.days = days
	d.fillScripts()
	return d, nil
}

func newDocument(id uuid.UUID, store *entity.Store, index *script.RefIndex) *Document {
	d := &Document{
		id:      id,
		info:    Info{}, //nolint:exhaustruct // set by the constructors.
		days:    0,
		store:   store,
		index:   index,
		scripts: map[script.Key]*script.Document{},
		retired: map[script.Key]uint64{},
		hub:     notify.NewHub[Change](),
	}
	store.SetReferenceCounter(d)
	store.OnChange(func(c entity.Change) {
		d.hub.Publish(Change{Kind: ChangeEntity, Entity: c}) //nolint:exhaustruct // see Change.
	})
	return d
}

// ID is the case identifier. It is assigned on creation and kept across saves.
func (d *Document) ID() uuid.UUID {
	return d.id
}

func (d *Document) Info() Info {
	info := d.info
	info.Extra = entity.CloneExtra(info.Extra)
	return info
}

func (d *Document) SetInfo(info Info) {
	info.Extra = entity.CloneExtra(info.Extra)
	d.info = info
	d.hub.Publish(Change{Kind: ChangeInfo}) //nolint:exhaustruct // see Change.
}

func (d *Document) Days() int {
	return d.days
}

// Entities gives access to the characters, locations and assets of the case.
func (d *Document) Entities() *entity.Store {
	return d.store
}

// Subscribe registers fn to be called after every successful mutation of the case, including
// its entities and scripts. The returned function cancels the subscription.
func (d *Document) Subscribe(fn func(Change)) func() {
	return d.hub.Subscribe(fn)
}

// References counts the references to ref held by script blocks and by the case overrides.
// The entity store consults it before deleting.
func (d *Document) References(ref entity.Ref) int {
	n := d.index.References(ref)
	if d.info.Overrides.TitleScreen != "" && ref == entity.AssetRef(d.info.Overrides.TitleScreen) {
		n++
	}
	return n
}

// SetDuration changes the number of days. Shrinking below the last day that still has blocks is
// refused so that content is never dropped silently.
func (d *Document) SetDuration(days int) error {
	if days < 1 {
		return errors.Wrap(ErrInvalidDuration, "set duration", slog.Int("days", days))
	}
	if last := d.lastPopulatedDay(); days < last {
		return errors.Wrap(ErrInvalidDuration, "set duration below populated day",
			slog.Int("days", days), slog.Int("last_populated_day", last))
	}
	if days == d.days {
		return nil
	}
	d.days = days
	for key, doc := range d.scripts {
		if key.Day > days {
			if doc.Counter() > 0 {
				d.retired[key] = doc.Counter()
			}
			delete(d.scripts, key)
		}
	}
	d.fillScripts()
	d.hub.Publish(Change{Kind: ChangeDuration, Days: days}) //nolint:exhaustruct // see Change.
	return nil
}

// ScriptDocument returns the script of the given day and phase, creating an empty one if needed.
func (d *Document) ScriptDocument(day int, phase script.Phase) (*script.Document, error) {
	if day < 1 || day > d.days || !phase.Valid() {
		return nil, errors.Wrap(ErrDayOutOfRange, "get script document",
			slog.Int("day", day), slog.String("phase", string(phase)), slog.Int("days", d.days))
	}
	key := script.Key{Day: day, Phase: phase}
	if doc, ok := d.scripts[key]; ok {
		return doc, nil
	}
	return d.create(key), nil
}

// Scripts returns every script document in playback order: days ascending, investigation before
// trial.
func (d *Document) Scripts() []*script.Document {
	docs := slices.Collect(maps.Values(d.scripts))
	slices.SortFunc(docs, func(a, b *script.Document) int { return a.Key().Compare(b.Key()) })
	return docs
}

// FindBlock locates a block by ID across all scripts.
func (d *Document) FindBlock(id script.BlockID) (*script.Document, int, bool) {
	key, ok := d.index.Locate(id)
	if !ok {
		return nil, -1, false
	}
	doc := d.scripts[key]
	return doc, doc.IndexOf(id), true
}

// HasBlock reports whether any script of the case holds the block.
func (d *Document) HasBlock(id script.BlockID) bool {
	_, ok := d.index.Locate(id)
	return ok
}

// BlockCount returns the number of blocks across all scripts.
func (d *Document) BlockCount() int {
	n := 0
	for _, doc := range d.scripts {
		n += doc.Len()
	}
	return n
}

func (d *Document) attach(doc *script.Document) *script.Document {
	doc.OnChange(func(c script.Change) {
		d.hub.Publish(Change{Kind: ChangeScript, Script: c}) //nolint:exhaustruct // see Change.
	})
	d.scripts[doc.Key()] = doc
	return doc
}

// create attaches an empty script whose block counter continues where a retired script of the
// same day and phase stopped.
func (d *Document) create(key script.Key) *script.Document {
	counter := d.retired[key]
	delete(d.retired, key)
	return d.attach(script.NewDocument(key, counter, d.index))
}

func (d *Document) fillScripts() {
	for day := 1; day <= d.days; day++ {
		for _, phase := range script.Phases {
			key := script.Key{Day: day, Phase: phase}
			if _, ok := d.scripts[key]; !ok {
				d.create(key)
			}
		}
	}
}

func (d *Document) lastPopulatedDay() int {
	last := 0
	for key, doc := range d.scripts {
		if doc.Len() > 0 {
			last = max(last, key.Day)
		}
	}
	return last
}
