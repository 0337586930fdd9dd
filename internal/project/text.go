package project

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// text is a string field written so that it loads back byte for byte. The encoder's block
// styles drop a leading line break and normalise carriage returns, so such values are written
// double-quoted instead.
type text string

func (t text) MarshalYAML() (any, error) {
	s := string(t)
	if !needsQuotes(s) {
		return s, nil
	}
	return &yaml.Node{ //nolint:exhaustruct // scalar node.
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: s,
		Style: yaml.DoubleQuotedStyle,
	}, nil
}

func needsQuotes(s string) bool {
	return s != strings.TrimSpace(s) || strings.ContainsRune(s, '\r')
}

// quoteExtra copies an open field map, turning every string inside it into a text.
func quoteExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	quoted := make(map[string]any, len(extra))
	for k, v := range extra {
		quoted[k] = quoteValue(v)
	}
	return quoted
}

func quoteValue(v any) any {
	switch v := v.(type) {
	case string:
		return text(v)
	case map[string]any:
		return quoteExtra(v)
	case []any:
		quoted := make([]any, len(v))
		for i, e := range v {
			quoted[i] = quoteValue(e)
		}
		return quoted
	default:
		return v
	}
}
