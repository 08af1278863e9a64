package engine

import (
	"time"

	"github.com/variantd/variantd/internal/flags"
)

// Reason explains why an evaluation produced its variant.
type Reason string

const (
	ReasonFlagDisabled Reason = "FLAG_DISABLED"
	ReasonDefault      Reason = "DEFAULT"
	ReasonRuleMatch    Reason = "RULE_MATCH"
	ReasonError        Reason = "ERROR"

	// anonymousKey buckets percentage conditions when neither the condition
	// attribute nor a user id is available.
	anonymousKey = "anonymous"
)

// Result is the deterministic output of one flag evaluation.
type Result struct {
	FlagID      string      `json:"flagId"`
	VariantID   string      `json:"variantId"`
	Value       flags.Value `json:"value"`
	Reason      Reason      `json:"reason"`
	RuleID      string      `json:"ruleId,omitempty"`
	EvaluatedAt time.Time   `json:"evaluatedAt"`
	Error       string      `json:"error,omitempty"`
}
