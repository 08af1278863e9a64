package flags

// Construction helpers used by sources, the admin API, and tests. These are
// plain constructors with chained setters; Build validates the result.

// NewFlag starts a flag definition with the given id and name.
func NewFlag(id, name string) *FlagBuilder {
	return &FlagBuilder{flag: Flag{ID: id, Name: name, Enabled: true}}
}

// FlagBuilder accumulates a Flag definition.
type FlagBuilder struct {
	flag Flag
}

// Enabled sets the flag's enabled state.
func (b *FlagBuilder) Enabled(enabled bool) *FlagBuilder {
	b.flag.Enabled = enabled
	return b
}

// Variant appends a variant.
func (b *FlagBuilder) Variant(id string, value Value) *FlagBuilder {
	b.flag.Variants = append(b.flag.Variants, Variant{ID: id, Value: value})
	return b
}

// Default sets the default variant id.
func (b *FlagBuilder) Default(variantID string) *FlagBuilder {
	b.flag.DefaultVariantID = variantID
	return b
}

// Rule appends a rule in declaration order.
func (b *FlagBuilder) Rule(r Rule) *FlagBuilder {
	b.flag.Rules = append(b.flag.Rules, r)
	return b
}

// Build validates and returns the flag.
func (b *FlagBuilder) Build() (Flag, error) {
	if err := Validate(b.flag); err != nil {
		return Flag{}, err
	}
	return b.flag, nil
}

// MustBuild is Build for tests and static fixtures; it panics on an invalid
// definition.
func (b *FlagBuilder) MustBuild() Flag {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

// NewRule starts a rule targeting the given variant.
func NewRule(id, variantID string, priority int) *RuleBuilder {
	return &RuleBuilder{rule: Rule{ID: id, VariantID: variantID, Priority: priority, Enabled: true}}
}

// RuleBuilder accumulates a Rule definition.
type RuleBuilder struct {
	rule Rule
}

// Enabled sets the rule's enabled state.
func (b *RuleBuilder) Enabled(enabled bool) *RuleBuilder {
	b.rule.Enabled = enabled
	return b
}

// When appends a condition.
func (b *RuleBuilder) When(attribute string, op Operator, values ...string) *RuleBuilder {
	b.rule.Conditions = append(b.rule.Conditions, Condition{Attribute: attribute, Operator: op, Values: values})
	return b
}

// WhenNot appends a negated condition.
func (b *RuleBuilder) WhenNot(attribute string, op Operator, values ...string) *RuleBuilder {
	b.rule.Conditions = append(b.rule.Conditions, Condition{Attribute: attribute, Operator: op, Values: values, Negate: true})
	return b
}

// Build returns the rule.
func (b *RuleBuilder) Build() Rule {
	return b.rule
}
