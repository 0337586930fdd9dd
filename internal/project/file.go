package project

import (
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/script"
)

// Format tags the project file so that other YAML documents are rejected early.
const Format = "turnabout-project"

// Version is the project file version written by Encode. Older versions are migrated on load.
const Version = 2

// file is the on-disk layout. Inline maps keep keys this version does not know about.
type file struct {
	Format       string         `yaml:"format"`
	Version      int            `yaml:"version"`
	ID           string         `yaml:"id"`
	Name         text           `yaml:"name"`
	Author       text           `yaml:"author,omitempty"`
	Days         int            `yaml:"days"`
	InitialBlock script.BlockID `yaml:"initial_block,omitempty"`
	TextboxAlpha int            `yaml:"textbox_alpha"`
	TitleScreen  entity.AssetID `yaml:"title_screen,omitempty"`
	Counters     counters       `yaml:"counters"`
	Characters   []character    `yaml:"characters,omitempty"`
	Locations    []location     `yaml:"locations,omitempty"`
	Assets       []asset        `yaml:"assets,omitempty"`
	Evidence     []evidence     `yaml:"evidence,omitempty"`
	Testimonies  []testimony    `yaml:"testimonies,omitempty"`
	Scripts      []scriptEntry  `yaml:"scripts"`

	// RetiredCounters keep the block counters of days removed from the case.
	RetiredCounters []scriptCounter `yaml:"retired_counters,omitempty"`
	Extra           map[string]any  `yaml:",inline"`
}

type counters struct {
	Character uint64 `yaml:"character"`
	Location  uint64 `yaml:"location"`
	Asset     uint64 `yaml:"asset"`
	Evidence  uint64 `yaml:"evidence,omitempty"`
	Testimony uint64 `yaml:"testimony,omitempty"`
}

type character struct {
	ID             entity.CharacterID `yaml:"id"`
	Name           text               `yaml:"name"`
	Gender         entity.Gender      `yaml:"gender"`
	Caption        text               `yaml:"caption,omitempty"`
	Description    text               `yaml:"description,omitempty"`
	SpriteName     text               `yaml:"sprite,omitempty"`
	ProfileEnabled bool               `yaml:"profile_enabled,omitempty"`
	ProfileImage   entity.AssetID     `yaml:"profile_image,omitempty"`
	Extra          map[string]any     `yaml:",inline"`
}

type location struct {
	ID           entity.LocationID `yaml:"id"`
	Name         text              `yaml:"name"`
	PreviewImage entity.AssetID    `yaml:"preview_image,omitempty"`
	Hotspots     []hotspot         `yaml:"hotspots,omitempty"`
	Extra        map[string]any    `yaml:",inline"`
}

type hotspot struct {
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Block  string `yaml:"block"`
}

type asset struct {
	ID        entity.AssetID   `yaml:"id"`
	Name      text             `yaml:"name"`
	Kind      entity.AssetKind `yaml:"kind"`
	MediaType text             `yaml:"media_type,omitempty"`
	// Data is base64 encoded.
	Data  string         `yaml:"data"`
	Extra map[string]any `yaml:",inline"`
}

type evidence struct {
	ID          entity.EvidenceID `yaml:"id"`
	Name        text              `yaml:"name"`
	Caption     text              `yaml:"caption,omitempty"`
	Description text              `yaml:"description,omitempty"`
	Image       entity.AssetID    `yaml:"image,omitempty"`
	CheckImage  entity.AssetID    `yaml:"check_image,omitempty"`
	Extra       map[string]any    `yaml:",inline"`
}

type testimony struct {
	ID              entity.TestimonyID `yaml:"id"`
	Title           text               `yaml:"title"`
	Speaker         entity.CharacterID `yaml:"speaker"`
	NextBlock       string             `yaml:"next_block,omitempty"`
	FollowLocation  entity.LocationID  `yaml:"follow_location,omitempty"`
	CrossExamineEnd string             `yaml:"cross_examine_end,omitempty"`
	Pieces          []piece            `yaml:"pieces"`
	Extra           map[string]any     `yaml:",inline"`
}

type piece struct {
	Text            text              `yaml:"text"`
	PresentEvidence entity.EvidenceID `yaml:"present_evidence,omitempty"`
	PresentBlock    string            `yaml:"present_block,omitempty"`
	PressBlock      string            `yaml:"press_block,omitempty"`
	Hidden          bool              `yaml:"hidden,omitempty"`
}

type scriptCounter struct {
	Day     int          `yaml:"day"`
	Phase   script.Phase `yaml:"phase"`
	Counter uint64       `yaml:"counter"`
}

type scriptEntry struct {
	Day     int          `yaml:"day"`
	Phase   script.Phase `yaml:"phase"`
	Counter uint64       `yaml:"counter,omitempty"`
	Blocks  []block      `yaml:"blocks,omitempty"`
}

type block struct {
	ID          script.BlockID     `yaml:"id"`
	Kind        script.BlockKind   `yaml:"kind"`
	Text        text               `yaml:"text"`
	Speaker     entity.CharacterID `yaml:"speaker,omitempty"`
	Location    entity.LocationID  `yaml:"location,omitempty"`
	TimeTag     text               `yaml:"time,omitempty"`
	Description text               `yaml:"description,omitempty"`
	Extra       map[string]any     `yaml:",inline"`
}
