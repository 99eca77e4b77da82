package atom

import "strconv"

// Distill produces a plain, atom-free deep copy of v's value graph. Atoms
// become ordinary records or lists, plain records and lists are copied with
// their nested atoms distilled, and non-composite values pass through. The
// copy never aliases live atom state.
//
// Cycles in the graph are preserved as shared identity in the output rather
// than recursed into: the seen map is keyed by atom identity and populated
// before descending into fields, so a field pointing back at an ancestor
// resolves to the partially built copy.
func Distill(v any) any {
	return distill(v, make(map[*State]any))
}

func distill(v any, seen map[*State]any) any {
	switch t := v.(type) {
	case *Atom:
		return distillState(t.state, seen)
	case *State:
		return distillState(t, seen)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = distill(item, seen)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = distill(item, seen)
		}
		return out
	default:
		return v
	}
}

func distillState(s *State, seen map[*State]any) any {
	if copied, visited := seen[s]; visited {
		return copied
	}

	if s.list {
		s.mu.RLock()
		n := s.length
		s.mu.RUnlock()

		out := make([]any, n)
		seen[s] = out
		for i := 0; i < n; i++ {
			item, _ := s.load(strconv.Itoa(i))
			out[i] = distill(item, seen)
		}
		return out
	}

	keys := s.snapshotKeys()
	out := make(map[string]any, len(keys))
	seen[s] = out
	for _, k := range keys {
		item, _ := s.load(k)
		out[k] = distill(item, seen)
	}
	return out
}
