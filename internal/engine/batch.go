package engine

import "github.com/variantd/variantd/internal/flags"

// EvaluateAll evaluates flags from the collection against one context and
// returns results keyed by flag id.
//
// When ids is non-empty only those flags are evaluated; ids that do not
// exist in the collection are silently ignored. Every flag is evaluated
// independently: one flag's error result never affects another flag's
// result, and the output does not depend on iteration order.
func (e *Evaluator) EvaluateAll(col *flags.Collection, ctx *Context, ids []string) map[string]Result {
	if col == nil {
		return map[string]Result{}
	}

	if len(ids) > 0 {
		results := make(map[string]Result, len(ids))
		for _, id := range ids {
			if flag, ok := col.Get(id); ok {
				results[id] = e.Evaluate(&flag, ctx)
			}
		}
		return results
	}

	results := make(map[string]Result, col.Len())
	for id, flag := range col.All() {
		results[id] = e.Evaluate(&flag, ctx)
	}
	return results
}
