package script

import (
	"slices"
	"strings"

	"github.com/myrjola/turnabout/internal/entity"
)

const (
	triggerOpen  = "{*"
	triggerClose = "*}"
	// noneArg is the placeholder the runtime uses for "no target".
	noneArg = "null"
)

// Trigger is a control sequence embedded in block text, written as {*name:arg1,arg2;*}.
type Trigger struct {
	Name string
	Args []string
	// Offset is the byte offset of the opening brace within the text.
	Offset int
}

// ParseTriggers returns the triggers found in text in order of appearance. An opening sequence
// without a matching close is treated as plain text.
func ParseTriggers(text string) []Trigger {
	var (
		triggers []Trigger
		offset   int
	)
	for {
		start := strings.Index(text[offset:], triggerOpen)
		if start < 0 {
			return triggers
		}
		start += offset
		bodyStart := start + len(triggerOpen)
		end := strings.Index(text[bodyStart:], triggerClose)
		if end < 0 {
			return triggers
		}
		body := strings.TrimSuffix(text[bodyStart:bodyStart+end], ";")
		name, rawArgs, _ := strings.Cut(body, ":")
		trigger := Trigger{Name: strings.TrimSpace(name), Args: nil, Offset: start}
		if rawArgs != "" {
			// The runtime splits arguments at the first comma only.
			first, second, ok := strings.Cut(rawArgs, ",")
			trigger.Args = []string{strings.TrimSpace(first)}
			if ok {
				trigger.Args = append(trigger.Args, strings.TrimSpace(second))
			}
		}
		triggers = append(triggers, trigger)
		offset = bodyStart + end + len(triggerClose)
	}
}

// argKinds maps trigger names to the kinds of records their arguments name. Triggers that do
// not refer to records are absent.
var argKinds = map[string][]entity.Kind{ //nolint:gochecknoglobals // lookup table.
	"speaker":              {entity.KindCharacter},
	"show_character":       {entity.KindCharacter},
	"add_profile":          {entity.KindCharacter},
	"set_location":         {entity.KindLocation},
	"add_location":         {entity.KindLocation, entity.KindLocation},
	"put_character":        {entity.KindCharacter, entity.KindLocation},
	"set_location_trigger": {entity.KindLocation, entity.KindBlock},
	"goto":                 {entity.KindBlock},
	"direct_goto":          {entity.KindBlock},
	"play_music":           {entity.KindAsset},
	"add_evidence":         {entity.KindEvidence},
	"show_evidence":        {entity.KindEvidence},
	"show_evidence_left":   {entity.KindEvidence},
	"display_testimony":    {entity.KindTestimony},
}

// References returns the distinct records referred to by the block, through its Speaker and
// Location fields and through triggers in its text, ordered by kind and ID.
func (b TextBlock) References() []entity.Ref {
	var refs []entity.Ref
	if b.Speaker != "" {
		refs = append(refs, entity.CharacterRef(b.Speaker))
	}
	if b.Location != "" {
		refs = append(refs, entity.LocationRef(b.Location))
	}
	for _, trigger := range ParseTriggers(b.Text) {
		kinds := argKinds[trigger.Name]
		for i, arg := range trigger.Args {
			if i >= len(kinds) || arg == "" || arg == noneArg {
				continue
			}
			refs = append(refs, entity.Ref{Kind: kinds[i], ID: arg})
		}
	}
	slices.SortFunc(refs, entity.CompareRefs)
	return slices.Compact(refs)
}
