package casedoc

import (
	"fmt"
	"maps"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/myrjola/turnabout/internal/script"
)

type IssueKind string

const (
	IssueDanglingReference  IssueKind = "DanglingReference"
	IssueEmptyRequiredField IssueKind = "EmptyRequiredField"
	IssueInvalidField       IssueKind = "InvalidField"
	IssueEmptyCase          IssueKind = "EmptyCase"
	IssueDurationOutOfRange IssueKind = "DurationOutOfRange"
	IssueDuplicateID        IssueKind = "DuplicateID"
	IssueUnusedEntity       IssueKind = "UnusedEntity"
	IssueEmptyScript        IssueKind = "EmptyScript"
)

// Fatal reports whether the issue prevents exporting the case.
func (k IssueKind) Fatal() bool {
	return k != IssueUnusedEntity && k != IssueEmptyScript
}

// Issue is a single finding of [Document.Validate].
type Issue struct {
	Kind IssueKind
	// Subject is the record the issue is about. It is zero for case-level issues.
	Subject entity.Ref
	// Target is the missing record of a dangling reference.
	Target entity.Ref
	// Field names the offending field for field issues.
	Field   string
	Message string
}

func (i Issue) Fatal() bool {
	return i.Kind.Fatal()
}

func (i Issue) String() string {
	if i.Subject.IsZero() {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", i.Kind, i.Subject, i.Message)
}

// Fatal returns the fatal issues of issues in their original order.
func Fatal(issues []Issue) []Issue {
	return slices.DeleteFunc(slices.Clone(issues), func(i Issue) bool { return !i.Fatal() })
}

// Warnings returns the non-fatal issues of issues in their original order.
func Warnings(issues []Issue) []Issue {
	return slices.DeleteFunc(slices.Clone(issues), Issue.Fatal)
}

func (i Info) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Overrides),
	)
}

func (o Overrides) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.TextboxAlpha, validation.Min(DefaultTextboxAlpha), validation.Max(255)), //nolint:mnd // byte range.
	)
}

// Validate checks the case without modifying it. Issues are reported in a stable order: case
// metadata, then characters, locations, assets, evidence and testimonies by ID, then blocks in
// playback order.
func (d *Document) Validate() []Issue {
	v := validator{doc: d, issues: nil}
	v.metadata()
	v.entities()
	v.scripts()
	v.unused()
	return v.issues
}

type validator struct {
	doc    *Document
	issues []Issue
}

func (v *validator) add(kind IssueKind, subject entity.Ref, msg string) {
	v.issues = append(v.issues, Issue{Kind: kind, Subject: subject, Target: entity.Ref{}, Field: "", Message: msg})
}

func (v *validator) dangling(subject, target entity.Ref, field string) {
	v.issues = append(v.issues, Issue{
		Kind:    IssueDanglingReference,
		Subject: subject,
		Target:  target,
		Field:   field,
		Message: fmt.Sprintf("%s refers to missing %s", field, target),
	})
}

// fields turns ozzo-validation errors into issues, one per field in field name order.
func (v *validator) fields(subject entity.Ref, err error) {
	if err == nil {
		return
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		v.add(IssueInvalidField, subject, err.Error())
		return
	}
	for _, name := range slices.Sorted(maps.Keys(fieldErrs)) {
		fieldErr := fieldErrs[name]
		kind := IssueInvalidField
		var ve validation.Error
		if errors.As(fieldErr, &ve) && ve.Code() == validation.ErrRequired.Code() {
			kind = IssueEmptyRequiredField
		}
		v.issues = append(v.issues, Issue{
			Kind:    kind,
			Subject: subject,
			Target:  entity.Ref{},
			Field:   name,
			Message: fmt.Sprintf("%s %s", name, fieldErr.Error()),
		})
	}
}

func (v *validator) metadata() {
	d := v.doc
	info := d.info
	v.fields(entity.Ref{}, info.Validate())
	if d.days < 1 {
		v.add(IssueDurationOutOfRange, entity.Ref{}, fmt.Sprintf("case lasts %d days", d.days))
	}
	for _, doc := range d.Scripts() {
		if key := doc.Key(); key.Day < 1 || key.Day > d.days {
			v.add(IssueDurationOutOfRange, entity.Ref{}, fmt.Sprintf("%s lies outside of %d days", key, d.days))
		}
	}
	if id := info.Overrides.TitleScreen; id != "" && !d.store.HasAsset(id) {
		v.dangling(entity.Ref{}, entity.AssetRef(id), "title_screen")
	}
	if id := info.InitialBlock; id != "" && !d.HasBlock(id) {
		v.dangling(entity.Ref{}, script.BlockRef(id), "initial_block")
	}
	if d.BlockCount() == 0 {
		v.add(IssueEmptyCase, entity.Ref{}, "case has no blocks")
	}
}

func (v *validator) entities() {
	store := v.doc.store
	for _, c := range store.Characters() {
		ref := entity.CharacterRef(c.ID)
		v.fields(ref, c.Validate())
		v.links(ref, c.Links())
	}
	for _, l := range store.Locations() {
		ref := entity.LocationRef(l.ID)
		v.fields(ref, l.Validate())
		v.links(ref, l.Links())
	}
	for _, a := range store.Assets() {
		v.fields(entity.AssetRef(a.ID), a.Validate())
	}
	for _, e := range store.EvidenceList() {
		ref := entity.EvidenceRef(e.ID)
		v.fields(ref, e.Validate())
		v.links(ref, e.Links())
	}
	for _, t := range store.Testimonies() {
		ref := entity.TestimonyRef(t.ID)
		v.fields(ref, t.Validate())
		v.links(ref, t.Links())
	}
}

func (v *validator) links(subject entity.Ref, links []entity.Link) {
	for _, l := range links {
		if !v.exists(l.Ref) {
			v.dangling(subject, l.Ref, l.Field)
		}
	}
}

func (v *validator) scripts() {
	seen := map[script.BlockID]script.Key{}
	populated := v.doc.BlockCount() > 0
	for _, doc := range v.doc.Scripts() {
		if doc.Len() == 0 && populated {
			v.add(IssueEmptyScript, entity.Ref{}, doc.Key().String()+" has no blocks")
		}
		for _, b := range doc.Blocks() {
			ref := script.BlockRef(b.ID)
			if first, ok := seen[b.ID]; ok {
				v.add(IssueDuplicateID, ref, fmt.Sprintf("also used in %s", first))
			} else {
				seen[b.ID] = doc.Key()
			}
			v.fields(ref, b.Validate())
			for _, target := range b.References() {
				if !v.exists(target) {
					v.dangling(ref, target, "text")
				}
			}
		}
	}
}

// unused reports entities nothing refers to. They are exported anyway, except for assets.
func (v *validator) unused() {
	d := v.doc
	for _, c := range d.store.Characters() {
		v.unreferenced(entity.CharacterRef(c.ID), "character")
	}
	for _, l := range d.store.Locations() {
		v.unreferenced(entity.LocationRef(l.ID), "location")
	}
	for _, a := range d.store.Assets() {
		if !d.spriteInUse(a) {
			v.unreferenced(entity.AssetRef(a.ID), "asset")
		}
	}
	for _, e := range d.store.EvidenceList() {
		v.unreferenced(entity.EvidenceRef(e.ID), "evidence")
	}
	for _, t := range d.store.Testimonies() {
		v.unreferenced(entity.TestimonyRef(t.ID), "testimony")
	}
}

func (v *validator) unreferenced(ref entity.Ref, noun string) {
	if v.doc.References(ref) == 0 && len(v.doc.store.Users(ref)) == 0 {
		v.add(IssueUnusedEntity, ref, noun+" is never referenced")
	}
}

func (v *validator) exists(ref entity.Ref) bool {
	if ref.Kind == entity.KindBlock {
		return v.doc.HasBlock(script.BlockID(ref.ID))
	}
	return v.doc.store.Has(ref)
}

// spriteInUse reports whether a sprite asset is the sprite sheet of a character.
func (d *Document) spriteInUse(a entity.Asset) bool {
	if a.Kind != entity.AssetSprite {
		return false
	}
	for _, c := range d.store.Characters() {
		if c.SpriteName != "" && c.SpriteName == a.Name {
			return true
		}
	}
	return false
}
