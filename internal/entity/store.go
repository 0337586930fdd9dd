package entity

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/turnabout/internal/errors"
)

var (
	ErrNotFound  = errors.NewSentinel("not found")
	ErrInUse     = errors.NewSentinel("in use")
	ErrInvalidID = errors.NewSentinel("invalid id")
)

// ReferenceCounter answers how many live references point at ref from outside the store,
// e.g. from script blocks.
type ReferenceCounter interface {
	References(ref Ref) int
}

type Op string

const (
	OpAdded   Op = "added"
	OpUpdated Op = "updated"
	OpRemoved Op = "removed"
)

// Change describes a successful store mutation.
type Change struct {
	Op  Op
	Ref Ref
}

// Counters hold the last sequence number issued per kind. They only ever grow, so an ID is never
// handed out twice during the lifetime of a case.
type Counters struct {
	Character uint64
	Location  uint64
	Asset     uint64
	Evidence  uint64
	Testimony uint64
}

// Store holds the entities of a single case keyed by their IDs.
type Store struct {
	characters map[CharacterID]Character
	locations  map[LocationID]Location
	assets     map[AssetID]Asset
	evidence   map[EvidenceID]Evidence
	testimony  map[TestimonyID]Testimony
	counters   Counters
	refs       ReferenceCounter
	onChange   func(Change)
}

func NewStore() *Store {
	return &Store{
		characters: map[CharacterID]Character{},
		locations:  map[LocationID]Location{},
		assets:     map[AssetID]Asset{},
		evidence:   map[EvidenceID]Evidence{},
		testimony:  map[TestimonyID]Testimony{},
		counters:   Counters{},
		refs:       nil,
		onChange:   nil,
	}
}

// SetReferenceCounter installs the collaborator consulted by the Remove operations.
func (s *Store) SetReferenceCounter(refs ReferenceCounter) {
	s.refs = refs
}

// OnChange installs the hook called after every successful mutation.
func (s *Store) OnChange(fn func(Change)) {
	s.onChange = fn
}

func (s *Store) changed(op Op, ref Ref) {
	if s.onChange != nil {
		s.onChange(Change{Op: op, Ref: ref})
	}
}

func (s *Store) Counters() Counters {
	return s.counters
}

// AddCharacter stores c under a newly minted ID and returns it. Any ID set on c is ignored.
func (s *Store) AddCharacter(c Character) CharacterID {
	s.counters.Character++
	c.ID = CharacterID(formatID("chr", s.counters.Character))
	if c.Gender == "" {
		c.Gender = GenderUnknown
	}
	s.characters[c.ID] = cloneCharacter(c)
	s.changed(OpAdded, CharacterRef(c.ID))
	return c.ID
}

// UpdateCharacter replaces the character stored under id with c, keeping the ID.
func (s *Store) UpdateCharacter(id CharacterID, c Character) error {
	if _, ok := s.characters[id]; !ok {
		return errors.Wrap(ErrNotFound, "update character", slog.String("id", string(id)))
	}
	c.ID = id
	s.characters[id] = cloneCharacter(c)
	s.changed(OpUpdated, CharacterRef(id))
	return nil
}

// RemoveCharacter deletes the character unless a script block or a testimony still refers to it.
func (s *Store) RemoveCharacter(id CharacterID) error {
	if _, ok := s.characters[id]; !ok {
		return errors.Wrap(ErrNotFound, "remove character", slog.String("id", string(id)))
	}
	if n := s.inUse(CharacterRef(id)); n > 0 {
		return errors.Wrap(ErrInUse, "remove character", slog.String("id", string(id)), slog.Int("references", n))
	}
	delete(s.characters, id)
	s.changed(OpRemoved, CharacterRef(id))
	return nil
}

func (s *Store) Character(id CharacterID) (Character, error) {
	c, ok := s.characters[id]
	if !ok {
		return Character{}, errors.Wrap(ErrNotFound, "get character", slog.String("id", string(id)))
	}
	return cloneCharacter(c), nil
}

func (s *Store) HasCharacter(id CharacterID) bool {
	_, ok := s.characters[id]
	return ok
}

// Characters returns all characters ordered by ID.
func (s *Store) Characters() []Character {
	return sortedValues(s.characters, func(c Character) string { return string(c.ID) }, cloneCharacter)
}

func (s *Store) AddLocation(l Location) LocationID {
	s.counters.Location++
	l.ID = LocationID(formatID("loc", s.counters.Location))
	s.locations[l.ID] = cloneLocation(l)
	s.changed(OpAdded, LocationRef(l.ID))
	return l.ID
}

func (s *Store) UpdateLocation(id LocationID, l Location) error {
	if _, ok := s.locations[id]; !ok {
		return errors.Wrap(ErrNotFound, "update location", slog.String("id", string(id)))
	}
	l.ID = id
	s.locations[id] = cloneLocation(l)
	s.changed(OpUpdated, LocationRef(id))
	return nil
}

func (s *Store) RemoveLocation(id LocationID) error {
	if _, ok := s.locations[id]; !ok {
		return errors.Wrap(ErrNotFound, "remove location", slog.String("id", string(id)))
	}
	if n := s.inUse(LocationRef(id)); n > 0 {
		return errors.Wrap(ErrInUse, "remove location", slog.String("id", string(id)), slog.Int("references", n))
	}
	delete(s.locations, id)
	s.changed(OpRemoved, LocationRef(id))
	return nil
}

func (s *Store) Location(id LocationID) (Location, error) {
	l, ok := s.locations[id]
	if !ok {
		return Location{}, errors.Wrap(ErrNotFound, "get location", slog.String("id", string(id)))
	}
	return cloneLocation(l), nil
}

func (s *Store) HasLocation(id LocationID) bool {
	_, ok := s.locations[id]
	return ok
}

// Locations returns all locations ordered by ID.
func (s *Store) Locations() []Location {
	return sortedValues(s.locations, func(l Location) string { return string(l.ID) }, cloneLocation)
}

func (s *Store) AddAsset(a Asset) AssetID {
	s.counters.Asset++
	a.ID = AssetID(formatID("ast", s.counters.Asset))
	s.assets[a.ID] = cloneAsset(a)
	s.changed(OpAdded, AssetRef(a.ID))
	return a.ID
}

func (s *Store) UpdateAsset(id AssetID, a Asset) error {
	if _, ok := s.assets[id]; !ok {
		return errors.Wrap(ErrNotFound, "update asset", slog.String("id", string(id)))
	}
	a.ID = id
	s.assets[id] = cloneAsset(a)
	s.changed(OpUpdated, AssetRef(id))
	return nil
}

// RemoveAsset deletes the asset unless a record or a script block refers to it.
func (s *Store) RemoveAsset(id AssetID) error {
	if _, ok := s.assets[id]; !ok {
		return errors.Wrap(ErrNotFound, "remove asset", slog.String("id", string(id)))
	}
	if n := s.inUse(AssetRef(id)); n > 0 {
		return errors.Wrap(ErrInUse, "remove asset", slog.String("id", string(id)), slog.Int("references", n))
	}
	delete(s.assets, id)
	s.changed(OpRemoved, AssetRef(id))
	return nil
}

func (s *Store) Asset(id AssetID) (Asset, error) {
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, errors.Wrap(ErrNotFound, "get asset", slog.String("id", string(id)))
	}
	return cloneAsset(a), nil
}

func (s *Store) HasAsset(id AssetID) bool {
	_, ok := s.assets[id]
	return ok
}

// Assets returns all assets ordered by ID.
func (s *Store) Assets() []Asset {
	return sortedValues(s.assets, func(a Asset) string { return string(a.ID) }, cloneAsset)
}

// AssetUsers lists the records whose images point at the asset.
func (s *Store) AssetUsers(id AssetID) []Ref {
	return s.Users(AssetRef(id))
}

// Users lists the records of the store that link to ref, ordered by kind and ID.
func (s *Store) Users(ref Ref) []Ref {
	var users []Ref
	add := func(user Ref, links []Link) {
		if slices.ContainsFunc(links, func(l Link) bool { return l.Ref == ref }) {
			users = append(users, user)
		}
	}
	for _, c := range s.characters {
		add(CharacterRef(c.ID), c.Links())
	}
	for _, l := range s.locations {
		add(LocationRef(l.ID), l.Links())
	}
	for _, e := range s.evidence {
		add(EvidenceRef(e.ID), e.Links())
	}
	for _, t := range s.testimony {
		add(TestimonyRef(t.ID), t.Links())
	}
	slices.SortFunc(users, CompareRefs)
	return users
}

// inUse counts references to ref from script blocks and from other records of the store.
func (s *Store) inUse(ref Ref) int {
	n := len(s.Users(ref))
	if s.refs != nil {
		n += s.refs.References(ref)
	}
	return n
}

// Snapshot is the plain-data form of a store. Slices are ordered by ID.
type Snapshot struct {
	Counters    Counters
	Characters  []Character
	Locations   []Location
	Assets      []Asset
	Evidence    []Evidence
	Testimonies []Testimony
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Counters:    s.counters,
		Characters:  s.Characters(),
		Locations:   s.Locations(),
		Assets:      s.Assets(),
		Evidence:    s.EvidenceList(),
		Testimonies: s.Testimonies(),
	}
}

// Restore rebuilds a store from a snapshot, keeping IDs exactly. Counters are raised when a
// restored ID carries a higher sequence number so that new IDs never collide with old ones.
func Restore(snap Snapshot) (*Store, error) {
	s := NewStore()
	s.counters = snap.Counters
	for _, c := range snap.Characters {
		if c.ID == "" {
			return nil, errors.Wrap(ErrInvalidID, "restore character", slog.String("name", c.Name))
		}
		if _, ok := s.characters[c.ID]; ok {
			return nil, errors.Wrap(ErrInvalidID, "duplicate character", slog.String("id", string(c.ID)))
		}
		s.characters[c.ID] = cloneCharacter(c)
		s.counters.Character = max(s.counters.Character, sequenceOf("chr", string(c.ID)))
	}
	for _, l := range snap.Locations {
		if l.ID == "" {
			return nil, errors.Wrap(ErrInvalidID, "restore location", slog.String("name", l.Name))
		}
		if _, ok := s.locations[l.ID]; ok {
			return nil, errors.Wrap(ErrInvalidID, "duplicate location", slog.String("id", string(l.ID)))
		}
		s.locations[l.ID] = cloneLocation(l)
		s.counters.Location = max(s.counters.Location, sequenceOf("loc", string(l.ID)))
	}
	for _, a := range snap.Assets {
		if a.ID == "" {
			return nil, errors.Wrap(ErrInvalidID, "restore asset", slog.String("name", a.Name))
		}
		if _, ok := s.assets[a.ID]; ok {
			return nil, errors.Wrap(ErrInvalidID, "duplicate asset", slog.String("id", string(a.ID)))
		}
		s.assets[a.ID] = cloneAsset(a)
		s.counters.Asset = max(s.counters.Asset, sequenceOf("ast", string(a.ID)))
	}
	for _, e := range snap.Evidence {
		if e.ID == "" {
			return nil, errors.Wrap(ErrInvalidID, "restore evidence", slog.String("name", e.Name))
		}
		if _, ok := s.evidence[e.ID]; ok {
			return nil, errors.Wrap(ErrInvalidID, "duplicate evidence", slog.String("id", string(e.ID)))
		}
		s.evidence[e.ID] = cloneEvidence(e)
		s.counters.Evidence = max(s.counters.Evidence, sequenceOf("evd", string(e.ID)))
	}
	for _, t := range snap.Testimonies {
		if t.ID == "" {
			return nil, errors.Wrap(ErrInvalidID, "restore testimony", slog.String("title", t.Title))
		}
		if _, ok := s.testimony[t.ID]; ok {
			return nil, errors.Wrap(ErrInvalidID, "duplicate testimony", slog.String("id", string(t.ID)))
		}
		s.testimony[t.ID] = cloneTestimony(t)
		s.counters.Testimony = max(s.counters.Testimony, sequenceOf("tst", string(t.ID)))
	}
	return s, nil
}

func formatID(prefix string, seq uint64) string {
	return fmt.Sprintf("%s-%d", prefix, seq)
}

// sequenceOf extracts the sequence number from IDs minted by this package, 0 otherwise.
func sequenceOf(prefix, id string) uint64 {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func sortedValues[K comparable, V any](m map[K]V, key func(V) string, clone func(V) V) []V {
	values := make([]V, 0, len(m))
	for _, v := range m {
		values = append(values, clone(v))
	}
	slices.SortFunc(values, func(a, b V) int { return CompareIDs(key(a), key(b)) })
	return values
}

func cloneCharacter(c Character) Character {
	c.Extra = CloneExtra(c.Extra)
	return c
}

func cloneLocation(l Location) Location {
	l.Hotspots = cloneSlice(l.Hotspots)
	l.Extra = CloneExtra(l.Extra)
	return l
}

func cloneEvidence(e Evidence) Evidence {
	e.Extra = CloneExtra(e.Extra)
	return e
}

func cloneTestimony(t Testimony) Testimony {
	t.Pieces = cloneSlice(t.Pieces)
	t.Extra = CloneExtra(t.Extra)
	return t
}

// cloneSlice copies s, normalising empty slices to nil.
func cloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

func cloneAsset(a Asset) Asset {
	if len(a.Data) == 0 {
		a.Data = nil
	} else {
		a.Data = bytes.Clone(a.Data)
	}
	a.Extra = CloneExtra(a.Extra)
	return a
}
