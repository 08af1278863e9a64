// Package flags defines the feature-flag domain model: flags, variants,
// targeting rules, conditions, and load-time validation. The evaluation
// engine treats all of these types as immutable once a flag has entered
// a published snapshot.
package flags

// Operator represents a comparison operator used in targeting conditions.
type Operator string

// Supported targeting operators (string values for clean JSON serialization).
const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpInList     Operator = "in_list"
	OpNotInList  Operator = "not_in_list"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpRegex      Operator = "regex"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpSemVerGt   Operator = "semver_gt"
	OpSemVerLt   Operator = "semver_lt"
	OpPercentage Operator = "percentage"
)

// Condition represents a single targeting predicate against one context
// attribute. When multiple conditions belong to one Rule, they are evaluated
// with AND semantics: all conditions must match for the rule to apply.
type Condition struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
	Negate    bool     `json:"negate,omitempty"`
}

// Rule maps a matching context to a specific variant. Rules with higher
// Priority are evaluated first; rules with equal Priority keep their
// declaration order. An empty Conditions list matches unconditionally.
type Rule struct {
	ID         string      `json:"id"`
	Conditions []Condition `json:"conditions"`
	VariantID  string      `json:"variantId"`
	Priority   int         `json:"priority"`
	Enabled    bool        `json:"enabled"`
}

// Variant is one concrete value a flag can resolve to. IDs are unique
// within a flag.
type Variant struct {
	ID    string `json:"id"`
	Value Value  `json:"value"`
}

// Flag is a named configuration point with one or more variants and an
// ordered set of targeting rules. DefaultVariantID must reference one of
// Variants; this is enforced by Validate at load time.
type Flag struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Enabled          bool      `json:"enabled"`
	Variants         []Variant `json:"variants"`
	Rules            []Rule    `json:"rules,omitempty"`
	DefaultVariantID string    `json:"defaultVariantId"`
}

// Variant returns the variant with the given id, or false if none exists.
func (f *Flag) Variant(id string) (Variant, bool) {
	for _, v := range f.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// DefaultVariant resolves DefaultVariantID against Variants.
func (f *Flag) DefaultVariant() (Variant, bool) {
	return f.Variant(f.DefaultVariantID)
}

// Collection is an immutable set of flags keyed by flag id. It is built once
// by the configuration source and handed to the engine as part of a snapshot.
type Collection struct {
	flags map[string]Flag
}

// NewCollection builds a Collection from the given flags. Later entries with
// a duplicate id replace earlier ones.
func NewCollection(list []Flag) *Collection {
	m := make(map[string]Flag, len(list))
	for _, f := range list {
		m[f.ID] = f
	}
	return &Collection{flags: m}
}

// Get returns the flag with the given id.
func (c *Collection) Get(id string) (Flag, bool) {
	f, ok := c.flags[id]
	return f, ok
}

// Len returns the number of flags in the collection.
func (c *Collection) Len() int {
	return len(c.flags)
}

// All returns the underlying flag map. Callers must not mutate it.
func (c *Collection) All() map[string]Flag {
	return c.flags
}
