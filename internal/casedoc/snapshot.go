package casedoc

import (
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/script"
)

// ScriptSnapshot is the plain-data form of one script document.
type ScriptSnapshot struct {
	Key     script.Key
	Counter uint64
	Blocks  []script.TextBlock
}

// Snapshot is the plain-data form of a case. Two cases with equal snapshots are the same case.
type Snapshot struct {
	CaseID   uuid.UUID
	Info     Info
	Days     int
	Entities entity.Snapshot
	// Scripts lists every day and phase in playback order.
	Scripts []ScriptSnapshot
	// RetiredCounters are the block counters of scripts beyond Days, nil when there are none.
	RetiredCounters map[script.Key]uint64
}

func (d *Document) Snapshot() Snapshot {
	docs := d.Scripts()
	scripts := make([]ScriptSnapshot, 0, len(docs))
	for _, doc := range docs {
		scripts = append(scripts, ScriptSnapshot{
			Key:     doc.Key(),
			Counter: doc.Counter(),
			Blocks:  doc.Snapshot(),
		})
	}
	var retired map[script.Key]uint64
	if len(d.retired) > 0 {
		retired = maps.Clone(d.retired)
	}
	return Snapshot{
		CaseID:          d.id,
		Info:            d.Info(),
		Days:            d.days,
		Entities:        d.store.Snapshot(),
		Scripts:         scripts,
		RetiredCounters: retired,
	}
}

// FromSnapshot rebuilds a case. Missing day/phase scripts are created empty.
func FromSnapshot(snap Snapshot) (*Document, error) {
	if snap.Days < 1 {
		return nil, errors.Wrap(ErrInvalidDuration, "restore case", slog.Int("days", snap.Days))
	}
	store, err := entity.Restore(snap.Entities)
	if err != nil {
		return nil, errors.Wrap(err, "restore entities")
	}
	id := snap.CaseID
	if id == uuid.Nil {
		id = uuid.New()
	}
	d := newDocument(id, store, script.NewRefIndex())
	d.info = snap.Info
	d.info.Extra = entity.CloneExtra(d.info.Extra)
	d.days = snap.Days
	for key, counter := range snap.RetiredCounters {
		if key.Day <= snap.Days || !key.Phase.Valid() {
			return nil, errors.Wrap(ErrDayOutOfRange, "restore retired counter", slog.String("key", key.String()))
		}
		if counter > 0 {
			d.retired[key] = counter
		}
	}
	for _, s := range snap.Scripts {
		key := s.Key
		if key.Day < 1 || key.Day > snap.Days || !key.Phase.Valid() {
			return nil, errors.Wrap(ErrDayOutOfRange, "restore script", slog.String("key", key.String()))
		}
		if _, ok := d.scripts[key]; ok {
			return nil, errors.Wrap(ErrDuplicateScript, "restore script", slog.String("key", key.String()))
		}
		doc, err := script.Restore(key, s.Counter, s.Blocks, d.index)
		if err != nil {
			return nil, errors.Wrap(err, "restore script", slog.String("key", key.String()))
		}
		d.attach(doc)
	}
	d.fillScripts()
	return d, nil
}
