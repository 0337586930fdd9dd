// Package script holds the ordered text blocks of one day and phase of a case.
package script

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/myrjola/turnabout/internal/entity"
)

type Phase string

const (
	PhaseInvestigation Phase = "investigation"
	PhaseTrial         Phase = "trial"
)

// Phases lists the phases of a day in playback order.
var Phases = []Phase{PhaseInvestigation, PhaseTrial} //nolint:gochecknoglobals // fixed order.

func (p Phase) Valid() bool {
	return p == PhaseInvestigation || p == PhaseTrial
}

// Key identifies the script document of one day and phase.
type Key struct {
	Day   int
	Phase Phase
}

func (k Key) String() string {
	return fmt.Sprintf("day %d %s", k.Day, k.Phase)
}

// Compare orders keys by day and then Investigation before Trial.
func (k Key) Compare(other Key) int {
	if k.Day != other.Day {
		if k.Day < other.Day {
			return -1
		}
		return 1
	}
	return phaseRank(k.Phase) - phaseRank(other.Phase)
}

func phaseRank(p Phase) int {
	if p == PhaseTrial {
		return 1
	}
	return 0
}

type BlockID string

type BlockKind string

const (
	BlockScript    BlockKind = "script"
	BlockNarration BlockKind = "narration"
)

// TextBlock is one unit of dialogue or narration. Text is kept verbatim, including markup
// such as <blue> and triggers such as {*goto:d1i.4;*}.
type TextBlock struct {
	ID          BlockID
	Kind        BlockKind
	Text        string
	Speaker     entity.CharacterID
	Location    entity.LocationID
	TimeTag     string
	Description string
	Extra       map[string]any
}

func (b TextBlock) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Kind, validation.Required, validation.In(BlockScript, BlockNarration)),
		validation.Field(&b.Text, validation.Required),
	)
}

func BlockRef(id BlockID) entity.Ref {
	return entity.Ref{Kind: entity.KindBlock, ID: string(id)}
}

func cloneBlock(b TextBlock) TextBlock {
	b.Extra = entity.CloneExtra(b.Extra)
	return b
}
