package flags

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Validate. A flag that fails validation must
// never enter a published snapshot; other flags in the same collection are
// unaffected.
var (
	ErrNoVariants            = errors.New("flag has no variants")
	ErrDuplicateVariant      = errors.New("duplicate variant id")
	ErrInvalidDefaultVariant = errors.New("default variant does not exist")
	ErrInvalidRuleVariant    = errors.New("rule references unknown variant")
	ErrInvalidOperator       = errors.New("invalid operator")
	ErrInvalidCondition      = errors.New("invalid condition")
)

// validOperators is the set of all recognised targeting operators.
var validOperators = map[Operator]struct{}{
	OpEquals:     {},
	OpNotEquals:  {},
	OpInList:     {},
	OpNotInList:  {},
	OpContains:   {},
	OpStartsWith: {},
	OpEndsWith:   {},
	OpRegex:      {},
	OpGt:         {},
	OpGte:        {},
	OpLt:         {},
	OpLte:        {},
	OpSemVerGt:   {},
	OpSemVerLt:   {},
	OpPercentage: {},
}

// Validate performs strict load-time validation of a flag: at least one
// variant exists, variant ids are unique, the default variant resolves, and
// every rule's variant reference resolves. It is a pure function: it never
// mutates f and has no side effects.
//
// Rule variant references are re-checked defensively at evaluation time as
// well, since rules and variants may be edited independently.
func Validate(f Flag) error {
	if f.ID == "" {
		return fmt.Errorf("%w: flag id must not be empty", ErrInvalidCondition)
	}

	if len(f.Variants) == 0 {
		return fmt.Errorf("%w: flag %q", ErrNoVariants, f.ID)
	}

	seen := make(map[string]struct{}, len(f.Variants))
	for _, v := range f.Variants {
		if v.ID == "" {
			return fmt.Errorf("%w: flag %q has a variant with an empty id", ErrDuplicateVariant, f.ID)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("%w: flag %q variant %q", ErrDuplicateVariant, f.ID, v.ID)
		}
		seen[v.ID] = struct{}{}
	}

	if _, ok := seen[f.DefaultVariantID]; !ok {
		return fmt.Errorf("%w: flag %q default %q", ErrInvalidDefaultVariant, f.ID, f.DefaultVariantID)
	}

	for i, r := range f.Rules {
		if r.ID == "" {
			return fmt.Errorf("%w: flag %q rule[%d] id must not be empty", ErrInvalidCondition, f.ID, i)
		}
		if _, ok := seen[r.VariantID]; !ok {
			return fmt.Errorf("%w: flag %q rule %q -> %q", ErrInvalidRuleVariant, f.ID, r.ID, r.VariantID)
		}
		for j, c := range r.Conditions {
			if err := validateCondition(f.ID, r.ID, j, c); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateCondition(flagID, ruleID string, i int, c Condition) error {
	if _, ok := validOperators[c.Operator]; !ok {
		return fmt.Errorf("%w: flag %q rule %q condition[%d] operator %q", ErrInvalidOperator, flagID, ruleID, i, c.Operator)
	}
	// Percentage is the only operator that can live without an attribute
	// (it falls back to the user id for bucketing).
	if c.Attribute == "" && c.Operator != OpPercentage {
		return fmt.Errorf("%w: flag %q rule %q condition[%d] attribute must not be empty", ErrInvalidCondition, flagID, ruleID, i)
	}
	return nil
}
