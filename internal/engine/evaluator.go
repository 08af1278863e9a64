package engine

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/variantd/variantd/internal/bucket"
	"github.com/variantd/variantd/internal/flags"
)

// Evaluator computes deterministic rule-based evaluation for flags. It holds
// no mutable state and is safe for concurrent use: results depend only on
// the flag definition and the supplied context.
type Evaluator struct {
	hasher *bucket.Hasher
	log    zerolog.Logger
}

// New creates an Evaluator. Evaluation anomalies (stale variant references,
// unresolvable defaults) are reported through log; they never abort an
// evaluation.
func New(hasher *bucket.Hasher, log zerolog.Logger) *Evaluator {
	return &Evaluator{hasher: hasher, log: log}
}

// Evaluate resolves which variant the flag returns for the given context.
//
// Evaluation order:
//  1. Resolve the default variant. If it does not resolve (a corrupt flag
//     that slipped past load-time validation), return ReasonError with the
//     first declared variant as an emergency fallback.
//  2. If the flag is disabled, return the default with ReasonFlagDisabled.
//  3. Walk rules by descending priority (stable order for equal priorities).
//     Disabled rules are skipped. A rule matches when all of its conditions
//     hold; an empty condition list matches unconditionally. The first
//     matching rule whose variant resolves wins; a stale variant reference
//     skips the rule instead of aborting.
//  4. No rule matched: return the default with ReasonDefault.
//
// Evaluate never panics and never returns an unusable result.
func (e *Evaluator) Evaluate(flag *flags.Flag, ctx *Context) Result {
	result := Result{FlagID: flag.ID}
	if ctx != nil {
		result.EvaluatedAt = ctx.EvaluatedAt
	}

	defaultVariant, ok := flag.DefaultVariant()
	if !ok {
		// Corrupt flag: fall back to the first declared variant so callers
		// still receive a usable value.
		if len(flag.Variants) == 0 {
			result.Reason = ReasonError
			result.Error = "flag has no variants"
			e.log.Error().Str("flag", flag.ID).Msg("flag has no variants")
			return result
		}
		fallback := flag.Variants[0]
		result.VariantID = fallback.ID
		result.Value = fallback.Value
		result.Reason = ReasonError
		result.Error = "default variant " + strconv.Quote(flag.DefaultVariantID) + " does not exist"
		e.log.Error().Str("flag", flag.ID).Str("default", flag.DefaultVariantID).
			Msg("default variant does not resolve, serving first declared variant")
		return result
	}

	result.VariantID = defaultVariant.ID
	result.Value = defaultVariant.Value

	if !flag.Enabled {
		result.Reason = ReasonFlagDisabled
		return result
	}

	for _, rule := range sortedRules(flag.Rules) {
		if !rule.Enabled {
			continue
		}
		if !e.matchesAllConditions(flag.ID, ctx, rule.Conditions) {
			continue
		}

		variant, ok := flag.Variant(rule.VariantID)
		if !ok {
			// Stale reference: the variant was removed after the rule was
			// written. Skip this rule and keep evaluating.
			e.log.Warn().Str("flag", flag.ID).Str("rule", rule.ID).Str("variant", rule.VariantID).
				Msg("rule references unknown variant, skipping rule")
			continue
		}

		result.VariantID = variant.ID
		result.Value = variant.Value
		result.Reason = ReasonRuleMatch
		result.RuleID = rule.ID
		return result
	}

	result.Reason = ReasonDefault
	return result
}

// sortedRules returns the rules ordered by descending priority. The sort is
// stable so rules sharing a priority keep their declaration order, which
// keeps evaluation reproducible. The input slice is never mutated; flags in
// a published snapshot are immutable.
func sortedRules(rules []flags.Rule) []flags.Rule {
	if len(rules) < 2 {
		return rules
	}
	sorted := make([]flags.Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}

// matchesAllConditions applies AND semantics over a rule's conditions,
// short-circuiting on the first false condition. An empty list is
// vacuously true.
func (e *Evaluator) matchesAllConditions(flagID string, ctx *Context, conditions []flags.Condition) bool {
	for _, condition := range conditions {
		if !e.evaluateCondition(flagID, ctx, condition) {
			return false
		}
	}
	return true
}

// evaluateCondition evaluates a single condition. Missing attributes,
// unknown operators, and unparsable operands all evaluate to false; Negate
// inverts the final outcome.
func (e *Evaluator) evaluateCondition(flagID string, ctx *Context, condition flags.Condition) bool {
	matched := e.checkCondition(flagID, ctx, condition)
	if condition.Negate {
		return !matched
	}
	return matched
}

func (e *Evaluator) checkCondition(flagID string, ctx *Context, condition flags.Condition) bool {
	if condition.Operator == flags.OpPercentage {
		return e.checkPercentage(flagID, ctx, condition)
	}

	attrValue, ok := ctx.stringAttribute(condition.Attribute)
	if !ok {
		// A missing attribute never implicitly matches.
		return false
	}

	handler, ok := getOperatorHandler(condition.Operator)
	if !ok {
		return false
	}
	return handler.Check(attrValue, condition.Values)
}

// checkPercentage buckets the context into the flag's rollout space. The
// bucketing key is the condition attribute when present, then the user id,
// then a fixed anonymous sentinel; the salt is the flag id, so every flag
// rolls out independently.
func (e *Evaluator) checkPercentage(flagID string, ctx *Context, condition flags.Condition) bool {
	if len(condition.Values) == 0 {
		return false
	}
	pct, err := strconv.Atoi(condition.Values[0])
	if err != nil {
		return false
	}

	key := anonymousKey
	if v, ok := ctx.stringAttribute(condition.Attribute); ok && v != "" {
		key = v
	} else if ctx != nil && ctx.UserID != "" {
		key = ctx.UserID
	}

	in, err := e.hasher.InPercentage(key, flagID, pct)
	if err != nil {
		return false
	}
	return in
}
