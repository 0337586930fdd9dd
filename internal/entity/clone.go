package entity

// CloneExtra deep-copies an open field map as produced by decoding YAML, so that nested maps
// and lists are not shared with the caller. An empty map becomes nil.
func CloneExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	clone := make(map[string]any, len(extra))
	for k, v := range extra {
		clone[k] = cloneValue(v)
	}
	return clone
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		clone := make(map[string]any, len(v))
		for k, e := range v {
			clone[k] = cloneValue(e)
		}
		return clone
	case map[any]any:
		clone := make(map[any]any, len(v))
		for k, e := range v {
			clone[k] = cloneValue(e)
		}
		return clone
	case []any:
		clone := make([]any, len(v))
		for i, e := range v {
			clone[i] = cloneValue(e)
		}
		return clone
	case []byte:
		return append([]byte(nil), v...)
	default:
		return v
	}
}
