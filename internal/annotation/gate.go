package annotation

// Evaluate recomputes a gate's status from the current memo list. Pure
// and total. Priority:
//
//  1. blocked — some memo named in blockedBy exists and is still open
//  2. done    — no memo anywhere in the document is open
//  3. proceed — no named blocker left, but other open memos remain
//
// Note that "done" is document-global, not scoped to blockedBy: a gate
// is only done once the whole review has no open items. That is the
// documented behavior, kept as is.
func Evaluate(g Gate, memos []Memo) string {
	for _, id := range g.BlockedBy {
		if m := FindMemo(memos, id); m != nil && m.Status == StatusOpen {
			return GateBlocked
		}
	}
	for i := range memos {
		if memos[i].Status == StatusOpen {
			return GateProceed
		}
	}
	return GateDone
}

// EvaluateAll returns a copy of gates with every status recomputed.
// The serialized status in the document is only a cache of this result.
func EvaluateAll(gates []Gate, memos []Memo) []Gate {
	out := make([]Gate, len(gates))
	for i, g := range gates {
		g.Status = Evaluate(g, memos)
		out[i] = g
	}
	return out
}
