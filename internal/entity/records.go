package entity

import (
	"log/slog"

	"github.com/myrjola/turnabout/internal/errors"
)

// AddEvidence stores e under a newly minted ID and returns it.
func (s *Store) AddEvidence(e Evidence) EvidenceID {
	s.counters.Evidence++
	e.ID = EvidenceID(formatID("evd", s.counters.Evidence))
	s.evidence[e.ID] = cloneEvidence(e)
	s.changed(OpAdded, EvidenceRef(e.ID))
	return e.ID
}

func (s *Store) UpdateEvidence(id EvidenceID, e Evidence) error {
	if _, ok := s.evidence[id]; !ok {
		return errors.Wrap(ErrNotFound, "update evidence", slog.String("id", string(id)))
	}
	e.ID = id
	s.evidence[id] = cloneEvidence(e)
	s.changed(OpUpdated, EvidenceRef(id))
	return nil
}

// RemoveEvidence deletes the evidence unless a script block or a testimony still refers to it.
func (s *Store) RemoveEvidence(id EvidenceID) error {
	if _, ok := s.evidence[id]; !ok {
		return errors.Wrap(ErrNotFound, "remove evidence", slog.String("id", string(id)))
	}
	if n := s.inUse(EvidenceRef(id)); n > 0 {
		return errors.Wrap(ErrInUse, "remove evidence", slog.String("id", string(id)), slog.Int("references", n))
	}
	delete(s.evidence, id)
	s.changed(OpRemoved, EvidenceRef(id))
	return nil
}

func (s *Store) Evidence(id EvidenceID) (Evidence, error) {
	e, ok := s.evidence[id]
	if !ok {
		return Evidence{}, errors.Wrap(ErrNotFound, "get evidence", slog.String("id", string(id)))
	}
	return cloneEvidence(e), nil
}

func (s *Store) HasEvidence(id EvidenceID) bool {
	_, ok := s.evidence[id]
	return ok
}

// EvidenceList returns all evidence ordered by ID.
func (s *Store) EvidenceList() []Evidence {
	return sortedValues(s.evidence, func(e Evidence) string { return string(e.ID) }, cloneEvidence)
}

func (s *Store) AddTestimony(t Testimony) TestimonyID {
	s.counters.Testimony++
	t.ID = TestimonyID(formatID("tst", s.counters.Testimony))
	s.testimony[t.ID] = cloneTestimony(t)
	s.changed(OpAdded, TestimonyRef(t.ID))
	return t.ID
}

func (s *Store) UpdateTestimony(id TestimonyID, t Testimony) error {
	if _, ok := s.testimony[id]; !ok {
		return errors.Wrap(ErrNotFound, "update testimony", slog.String("id", string(id)))
	}
	t.ID = id
	s.testimony[id] = cloneTestimony(t)
	s.changed(OpUpdated, TestimonyRef(id))
	return nil
}

// RemoveTestimony deletes the testimony unless a display_testimony trigger still refers to it.
func (s *Store) RemoveTestimony(id TestimonyID) error {
	if _, ok := s.testimony[id]; !ok {
		return errors.Wrap(ErrNotFound, "remove testimony", slog.String("id", string(id)))
	}
	if n := s.inUse(TestimonyRef(id)); n > 0 {
		return errors.Wrap(ErrInUse, "remove testimony", slog.String("id", string(id)), slog.Int("references", n))
	}
	delete(s.testimony, id)
	s.changed(OpRemoved, TestimonyRef(id))
	return nil
}

func (s *Store) Testimony(id TestimonyID) (Testimony, error) {
	t, ok := s.testimony[id]
	if !ok {
		return Testimony{}, errors.Wrap(ErrNotFound, "get testimony", slog.String("id", string(id)))
	}
	return cloneTestimony(t), nil
}

func (s *Store) HasTestimony(id TestimonyID) bool {
	_, ok := s.testimony[id]
	return ok
}

// Testimonies returns all testimonies ordered by ID.
func (s *Store) Testimonies() []Testimony {
	return sortedValues(s.testimony, func(t Testimony) string { return string(t.ID) }, cloneTestimony)
}

// Has reports whether the record ref points at exists in the store. Block references are not
// resolved here and always report false.
func (s *Store) Has(ref Ref) bool {
	switch ref.Kind {
	case KindCharacter:
		return s.HasCharacter(CharacterID(ref.ID))
	case KindLocation:
		return s.HasLocation(LocationID(ref.ID))
	case KindAsset:
		return s.HasAsset(AssetID(ref.ID))
	case KindEvidence:
		return s.HasEvidence(EvidenceID(ref.ID))
	case KindTestimony:
		return s.HasTestimony(TestimonyID(ref.ID))
	case KindBlock:
	}
	return false
}
