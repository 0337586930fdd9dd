// Package entity holds the characters, locations and raw assets of a case.
//
// Script blocks refer to entities by typed ID only. The store never follows those references
// itself; it asks a [ReferenceCounter] before deleting so that referenced entities stay put.
package entity

import (
	"cmp"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type (
	CharacterID string
	LocationID  string
	AssetID     string
	EvidenceID  string
	TestimonyID string
)

// Kind is the kind of record a [Ref] points at.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindAsset     Kind = "asset"
	KindEvidence  Kind = "evidence"
	KindTestimony Kind = "testimony"
	// KindBlock refers to a script block. Blocks are owned by script documents but are
	// referenced the same way, e.g. by goto triggers.
	KindBlock Kind = "block"
)

// Ref is a weak, by-value reference to a record of a case.
type Ref struct {
	Kind Kind
	ID   string
}

func CharacterRef(id CharacterID) Ref { return Ref{Kind: KindCharacter, ID: string(id)} }
func LocationRef(id LocationID) Ref   { return Ref{Kind: KindLocation, ID: string(id)} }
func AssetRef(id AssetID) Ref         { return Ref{Kind: KindAsset, ID: string(id)} }
func EvidenceRef(id EvidenceID) Ref   { return Ref{Kind: KindEvidence, ID: string(id)} }
func TestimonyRef(id TestimonyID) Ref { return Ref{Kind: KindTestimony, ID: string(id)} }

// blockRef refers to a script block by its ID. Blocks live in the script package, so records of
// this package carry block IDs as plain strings.
func blockRef(id string) Ref { return Ref{Kind: KindBlock, ID: id} }

// Link is a reference held by a record, together with the field that holds it.
type Link struct {
	Field string
	Ref   Ref
}

// appendLink skips empty references.
func appendLink(links []Link, field string, ref Ref) []Link {
	if ref.IsZero() {
		return links
	}
	return append(links, Link{Field: field, Ref: ref})
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}

func (r Ref) IsZero() bool {
	return r.ID == ""
}

// CompareRefs orders references by kind and then by ID using [CompareIDs].
func CompareRefs(a, b Ref) int {
	if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
		return c
	}
	return CompareIDs(a.ID, b.ID)
}

// CompareIDs orders IDs so that generated IDs sort by sequence number, i.e. chr-2 before chr-10.
func CompareIDs(a, b string) int {
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Character is a person appearing in the case.
type Character struct {
	ID          CharacterID
	Name        string
	Gender      Gender
	Caption     string
	Description string
	// SpriteName is the base name of the character's sprite.
	SpriteName     string
	ProfileEnabled bool
	ProfileImage   AssetID
	// Extra carries fields this editor does not know about so that they survive a round-trip.
	Extra map[string]any
}

// Links lists the records the character refers to.
func (c Character) Links() []Link {
	return appendLink(nil, "profile_image", AssetRef(c.ProfileImage))
}

func (c Character) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Gender, validation.Required, validation.In(GenderMale, GenderFemale, GenderUnknown)),
		validation.Field(&c.ProfileImage, validation.When(c.ProfileEnabled, validation.Required)),
	)
}

// Location is a place that can be visited during the investigation.
type Location struct {
	ID           LocationID
	Name         string
	PreviewImage AssetID
	// Hotspots are the examinable areas of the location's background.
	Hotspots []Hotspot
	Extra    map[string]any
}

// Hotspot is a rectangle of a location that runs Block when the player examines it.
type Hotspot struct {
	X, Y          int
	Width, Height int
	Block         string
}

func (h Hotspot) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.X, validation.Min(0)),
		validation.Field(&h.Y, validation.Min(0)),
		validation.Field(&h.Width, validation.Required, validation.Min(1)),
		validation.Field(&h.Height, validation.Required, validation.Min(1)),
		validation.Field(&h.Block, validation.Required),
	)
}

func (l Location) Links() []Link {
	links := appendLink(nil, "preview_image", AssetRef(l.PreviewImage))
	for i, h := range l.Hotspots {
		links = appendLink(links, fmt.Sprintf("hotspots.%d.block", i), blockRef(h.Block))
	}
	return links
}

func (l Location) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Name, validation.Required),
		validation.Field(&l.Hotspots),
	)
}

type AssetKind string

const (
	AssetImage  AssetKind = "image"
	AssetSprite AssetKind = "sprite"
	AssetAudio  AssetKind = "audio"
)

// Asset is raw media embedded in the case, e.g. a profile picture or a sprite sheet.
type Asset struct {
	ID        AssetID
	Name      string
	Kind      AssetKind
	MediaType string
	Data      []byte
	Extra     map[string]any
}

func (a Asset) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Kind, validation.Required, validation.In(AssetImage, AssetSprite, AssetAudio)),
		validation.Field(&a.Data, validation.Required),
	)
}

// Evidence is an item of the court record.
type Evidence struct {
	ID          EvidenceID
	Name        string
	Caption     string
	Description string
	Image       AssetID
	// CheckImage is the close-up shown when the player checks the item.
	CheckImage AssetID
	Extra      map[string]any
}

func (e Evidence) Links() []Link {
	links := appendLink(nil, "image", AssetRef(e.Image))
	return appendLink(links, "check_image", AssetRef(e.CheckImage))
}

func (e Evidence) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
	)
}

// Testimony is a witness statement that can be cross-examined piece by piece.
type Testimony struct {
	ID      TestimonyID
	Title   string
	Speaker CharacterID
	// NextBlock runs once the testimony has been heard.
	NextBlock      string
	FollowLocation LocationID
	// CrossExamineEnd runs when the player scrolls past the last piece.
	CrossExamineEnd string
	Pieces          []TestimonyPiece
	Extra           map[string]any
}

// TestimonyPiece is one statement of a testimony.
type TestimonyPiece struct {
	Text string
	// PresentEvidence is the evidence that contradicts the statement, PresentBlock runs when it
	// is presented.
	PresentEvidence EvidenceID
	PresentBlock    string
	PressBlock      string
	Hidden          bool
}

func (p TestimonyPiece) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Text, validation.Required),
		validation.Field(&p.PresentBlock, validation.When(p.PresentEvidence != "", validation.Required)),
	)
}

func (t Testimony) Links() []Link {
	links := appendLink(nil, "speaker", CharacterRef(t.Speaker))
	links = appendLink(links, "next_block", blockRef(t.NextBlock))
	links = appendLink(links, "follow_location", LocationRef(t.FollowLocation))
	links = appendLink(links, "cross_examine_end", blockRef(t.CrossExamineEnd))
	for i, p := range t.Pieces {
		links = appendLink(links, fmt.Sprintf("pieces.%d.present_evidence", i), EvidenceRef(p.PresentEvidence))
		links = appendLink(links, fmt.Sprintf("pieces.%d.present_block", i), blockRef(p.PresentBlock))
		links = appendLink(links, fmt.Sprintf("pieces.%d.press_block", i), blockRef(p.PressBlock))
	}
	return links
}

func (t Testimony) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required),
		validation.Field(&t.Speaker, validation.Required),
		validation.Field(&t.Pieces, validation.Required),
	)
}
