package engine

import (
	"encoding/json"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/variantd/variantd/internal/bucket"
	"github.com/variantd/variantd/internal/flags"
)

func newTestEvaluator() *Evaluator {
	return New(bucket.New("test-seed"), zerolog.Nop())
}

func betaFlag() flags.Flag {
	return flags.NewFlag("beta-feature", "Beta feature").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("beta-rule", "on", 100).
			When("user_group", flags.OpInList, "beta").
			Build()).
		MustBuild()
}

func TestEvaluate_RuleMatch(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()
	ctx := &Context{
		UserID:      "u1",
		Attributes:  map[string]any{"user_group": "beta"},
		EvaluatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	got := e.Evaluate(&flag, ctx)
	if got.VariantID != "on" || got.Reason != ReasonRuleMatch || got.RuleID != "beta-rule" {
		t.Fatalf("Evaluate() = %+v, want variant=on reason=RULE_MATCH rule=beta-rule", got)
	}
	if !got.EvaluatedAt.Equal(ctx.EvaluatedAt) {
		t.Errorf("EvaluatedAt = %v, want caller-supplied %v", got.EvaluatedAt, ctx.EvaluatedAt)
	}
}

func TestEvaluate_Default(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()
	ctx := &Context{UserID: "u1", Attributes: map[string]any{"user_group": "stable"}}

	got := e.Evaluate(&flag, ctx)
	if got.VariantID != "off" || got.Reason != ReasonDefault {
		t.Fatalf("Evaluate() = %+v, want variant=off reason=DEFAULT", got)
	}
	if got.RuleID != "" {
		t.Errorf("RuleID = %q, want empty", got.RuleID)
	}
}

func TestEvaluate_FlagDisabled(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()
	flag.Enabled = false
	// disabled wins even when a rule would match
	ctx := &Context{UserID: "u1", Attributes: map[string]any{"user_group": "beta"}}

	got := e.Evaluate(&flag, ctx)
	if got.VariantID != "off" || got.Reason != ReasonFlagDisabled {
		t.Fatalf("Evaluate() = %+v, want variant=off reason=FLAG_DISABLED", got)
	}
}

func TestEvaluate_PercentageRolloutStable(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("rollout-flag", "Rollout").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("pct-rule", "on", 10).
			When("user_id", flags.OpPercentage, "30").
			Build()).
		MustBuild()

	// Pick one user inside the 30% rollout and one outside, using the same
	// hasher the evaluator uses.
	h := bucket.New("test-seed")
	var inUser, outUser string
	for i := 0; inUser == "" || outUser == ""; i++ {
		id := "user-" + strconv.Itoa(i)
		if h.Bucket(id, "rollout-flag") < 30 {
			if inUser == "" {
				inUser = id
			}
		} else if outUser == "" {
			outUser = id
		}
	}

	for i := 0; i < 100; i++ {
		got := e.Evaluate(&flag, &Context{UserID: inUser})
		if got.VariantID != "on" || got.Reason != ReasonRuleMatch {
			t.Fatalf("iteration %d: included user got %+v, want variant=on", i, got)
		}
		got = e.Evaluate(&flag, &Context{UserID: outUser})
		if got.VariantID != "off" || got.Reason != ReasonDefault {
			t.Fatalf("iteration %d: excluded user got %+v, want variant=off", i, got)
		}
	}
}

func TestEvaluate_PercentageAnonymousSentinel(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("anon-flag", "Anon").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("pct-rule", "on", 10).
			When("", flags.OpPercentage, "50").
			Build()).
		MustBuild()

	// No user id and no attribute: everything falls back to one fixed
	// sentinel key, so repeated evaluations agree.
	first := e.Evaluate(&flag, &Context{})
	for i := 0; i < 20; i++ {
		got := e.Evaluate(&flag, &Context{})
		if got.VariantID != first.VariantID {
			t.Fatalf("anonymous evaluation not stable: %q then %q", first.VariantID, got.VariantID)
		}
	}
}

func TestEvaluate_StaleRuleVariantSkipped(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()
	// Simulate a variant deleted after the rule was written; built flags are
	// valid, so corrupt the copy directly.
	flag.Rules = append([]flags.Rule{{
		ID:        "stale-rule",
		VariantID: "archived",
		Priority:  200,
		Enabled:   true,
	}}, flag.Rules...)

	ctx := &Context{UserID: "u1", Attributes: map[string]any{"user_group": "beta"}}
	got := e.Evaluate(&flag, ctx)

	// The stale rule is skipped, not fatal: the next rule still matches.
	if got.VariantID != "on" || got.Reason != ReasonRuleMatch || got.RuleID != "beta-rule" {
		t.Fatalf("Evaluate() = %+v, want fall-through to beta-rule", got)
	}
}

func TestEvaluate_UnresolvableDefaultFallsBack(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()
	flag.DefaultVariantID = "missing"
	flag.Enabled = true

	got := e.Evaluate(&flag, &Context{UserID: "u1"})
	if got.Reason != ReasonError {
		t.Fatalf("Reason = %s, want ERROR", got.Reason)
	}
	if got.VariantID != "off" {
		t.Fatalf("VariantID = %q, want first declared variant \"off\"", got.VariantID)
	}
	if got.Error == "" {
		t.Error("expected a surfaced error message")
	}
}

func TestEvaluate_PriorityOrdering(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("prio-flag", "Priority").
		Variant("a", flags.StringValue("a")).
		Variant("b", flags.StringValue("b")).
		Variant("c", flags.StringValue("c")).
		Default("c").
		Rule(flags.NewRule("low", "b", 10).Build()).
		Rule(flags.NewRule("high", "a", 100).Build()).
		MustBuild()

	got := e.Evaluate(&flag, &Context{UserID: "u1"})
	if got.RuleID != "high" || got.VariantID != "a" {
		t.Fatalf("Evaluate() = %+v, want the higher-priority rule to win", got)
	}
}

func TestEvaluate_EqualPriorityKeepsDeclarationOrder(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("tie-flag", "Tie").
		Variant("first", flags.StringValue("first")).
		Variant("second", flags.StringValue("second")).
		Default("second").
		Rule(flags.NewRule("declared-first", "first", 50).Build()).
		Rule(flags.NewRule("declared-second", "second", 50).Build()).
		MustBuild()

	for i := 0; i < 10; i++ {
		got := e.Evaluate(&flag, &Context{UserID: "u1"})
		if got.RuleID != "declared-first" {
			t.Fatalf("iteration %d: RuleID = %q, want declared-first", i, got.RuleID)
		}
	}
}

func TestEvaluate_CatchAllRule(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("catch-flag", "Catch-all").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("catch-all", "on", 1).Build()).
		MustBuild()

	got := e.Evaluate(&flag, &Context{})
	if got.VariantID != "on" || got.Reason != ReasonRuleMatch {
		t.Fatalf("Evaluate() = %+v, want the empty-condition rule to match", got)
	}
}

func TestEvaluate_DisabledRuleSkipped(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("disabled-rule-flag", "Disabled rule").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("off-rule", "on", 100).Enabled(false).Build()).
		MustBuild()

	got := e.Evaluate(&flag, &Context{UserID: "u1"})
	if got.VariantID != "off" || got.Reason != ReasonDefault {
		t.Fatalf("Evaluate() = %+v, want disabled rule to be skipped", got)
	}
}

func TestEvaluate_NegationInvertsOutcome(t *testing.T) {
	e := newTestEvaluator()

	base := flags.NewFlag("neg-flag", "Negation").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("r", "on", 1).
			When("plan", flags.OpEquals, "premium").
			Build()).
		MustBuild()

	negated := flags.NewFlag("neg-flag", "Negation").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("r", "on", 1).
			WhenNot("plan", flags.OpEquals, "premium").
			Build()).
		MustBuild()

	contexts := []*Context{
		{UserID: "u1", Attributes: map[string]any{"plan": "premium"}},
		{UserID: "u1", Attributes: map[string]any{"plan": "free"}},
		{UserID: "u1", Attributes: map[string]any{"plan": ""}},
	}

	for i, ctx := range contexts {
		plain := e.Evaluate(&base, ctx).Reason == ReasonRuleMatch
		inverted := e.Evaluate(&negated, ctx).Reason == ReasonRuleMatch
		if plain == inverted {
			t.Errorf("context %d: negate did not invert outcome (both %v)", i, plain)
		}
	}
}

func TestEvaluate_MissingAttributeNeverMatches(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()

	got := e.Evaluate(&flag, &Context{UserID: "u1"})
	if got.Reason != ReasonDefault {
		t.Fatalf("Reason = %s, want DEFAULT for missing attribute", got.Reason)
	}
}

func TestEvaluate_ShortCircuitsOnFirstFalseCondition(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("and-flag", "AND").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("both", "on", 1).
			When("country", flags.OpEquals, "US").
			When("plan", flags.OpEquals, "premium").
			Build()).
		MustBuild()

	ctx := &Context{UserID: "u1", Attributes: map[string]any{"country": "CA", "plan": "premium"}}
	if got := e.Evaluate(&flag, ctx); got.Reason != ReasonDefault {
		t.Fatalf("Reason = %s, want DEFAULT (first condition false)", got.Reason)
	}

	ctx = &Context{UserID: "u1", Attributes: map[string]any{"country": "US", "plan": "premium"}}
	if got := e.Evaluate(&flag, ctx); got.Reason != ReasonRuleMatch {
		t.Fatalf("Reason = %s, want RULE_MATCH (all conditions true)", got.Reason)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := newTestEvaluator()
	flag := betaFlag()
	ctx := &Context{
		UserID:      "user-42",
		Attributes:  map[string]any{"user_group": "beta", "age": json.Number("30")},
		EvaluatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	first := e.Evaluate(&flag, ctx)
	for i := 0; i < 50; i++ {
		if got := e.Evaluate(&flag, ctx); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: Evaluate() = %+v, want %+v", i, got, first)
		}
	}
}

func TestEvaluate_NumericAttributeCoercion(t *testing.T) {
	e := newTestEvaluator()
	flag := flags.NewFlag("age-flag", "Age gate").
		Variant("off", flags.BoolValue(false)).
		Variant("on", flags.BoolValue(true)).
		Default("off").
		Rule(flags.NewRule("adult", "on", 1).
			When("age", flags.OpGte, "18").
			Build()).
		MustBuild()

	tests := []struct {
		name string
		age  any
		want Reason
	}{
		{name: "float64 above", age: 21.0, want: ReasonRuleMatch},
		{name: "int above", age: 21, want: ReasonRuleMatch},
		{name: "json number above", age: json.Number("21"), want: ReasonRuleMatch},
		{name: "string below", age: "17", want: ReasonDefault},
		{name: "string list not coercible", age: []string{"21"}, want: ReasonDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{UserID: "u1", Attributes: map[string]any{"age": tt.age}}
			if got := e.Evaluate(&flag, ctx); got.Reason != tt.want {
				t.Fatalf("Reason = %s, want %s", got.Reason, tt.want)
			}
		})
	}
}
