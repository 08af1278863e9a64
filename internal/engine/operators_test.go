package engine

import (
	"testing"

	"github.com/variantd/variantd/internal/flags"
)

func TestOperatorHandlers(t *testing.T) {
	tests := []struct {
		name       string
		op         flags.Operator
		attrValue  string
		ruleValues []string
		want       bool
	}{
		{name: "equals true", op: flags.OpEquals, attrValue: "premium", ruleValues: []string{"premium"}, want: true},
		{name: "equals false", op: flags.OpEquals, attrValue: "premium", ruleValues: []string{"free"}, want: false},
		{name: "equals case sensitive", op: flags.OpEquals, attrValue: "Premium", ruleValues: []string{"premium"}, want: false},
		{name: "not_equals true", op: flags.OpNotEquals, attrValue: "premium", ruleValues: []string{"free"}, want: true},
		{name: "in_list member", op: flags.OpInList, attrValue: "US", ruleValues: []string{"US", "CA"}, want: true},
		{name: "in_list nonmember", op: flags.OpInList, attrValue: "UK", ruleValues: []string{"US", "CA"}, want: false},
		{name: "not_in_list nonmember", op: flags.OpNotInList, attrValue: "UK", ruleValues: []string{"US", "CA"}, want: true},
		{name: "contains true", op: flags.OpContains, attrValue: "premium_plan", ruleValues: []string{"premium"}, want: true},
		{name: "starts_with true", op: flags.OpStartsWith, attrValue: "premium_plan", ruleValues: []string{"premium"}, want: true},
		{name: "ends_with true", op: flags.OpEndsWith, attrValue: "premium_plan", ruleValues: []string{"plan"}, want: true},
		{name: "regex match", op: flags.OpRegex, attrValue: "user@example.com", ruleValues: []string{`^[^@]+@example\.com$`}, want: true},
		{name: "regex no match", op: flags.OpRegex, attrValue: "user@other.com", ruleValues: []string{`^[^@]+@example\.com$`}, want: false},
		{name: "regex invalid pattern fails closed", op: flags.OpRegex, attrValue: "abc", ruleValues: []string{"("}, want: false},
		{name: "gt true", op: flags.OpGt, attrValue: "10", ruleValues: []string{"9.5"}, want: true},
		{name: "gte equal", op: flags.OpGte, attrValue: "10", ruleValues: []string{"10"}, want: true},
		{name: "lt false", op: flags.OpLt, attrValue: "10", ruleValues: []string{"9.5"}, want: false},
		{name: "lte equal", op: flags.OpLte, attrValue: "10.0", ruleValues: []string{"10"}, want: true},
		{name: "numeric unparsable attr fails closed", op: flags.OpGt, attrValue: "ten", ruleValues: []string{"9"}, want: false},
		{name: "numeric unparsable rule fails closed", op: flags.OpGt, attrValue: "10", ruleValues: []string{"nine"}, want: false},
		{name: "semver gt", op: flags.OpSemVerGt, attrValue: "1.2.0", ruleValues: []string{"1.1.9"}, want: true},
		{name: "semver lt prerelease", op: flags.OpSemVerLt, attrValue: "1.0.0-beta.1", ruleValues: []string{"1.0.0"}, want: true},
		{name: "semver unparsable fails closed", op: flags.OpSemVerGt, attrValue: "not-a-version", ruleValues: []string{"1.0.0"}, want: false},
		{name: "empty rule values fail closed", op: flags.OpEquals, attrValue: "x", ruleValues: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, ok := getOperatorHandler(tt.op)
			if !ok {
				t.Fatalf("handler not found for %q", tt.op)
			}
			if got := handler.Check(tt.attrValue, tt.ruleValues); got != tt.want {
				t.Fatalf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetOperatorHandler_Unknown(t *testing.T) {
	if _, ok := getOperatorHandler("between"); ok {
		t.Fatal("expected no handler for unknown operator")
	}
}

func TestRegexCache_ReusesCompiledPattern(t *testing.T) {
	pattern := `^cached-[0-9]+$`
	rx1, ok := getCompiledRegex(pattern)
	if !ok {
		t.Fatal("pattern did not compile")
	}
	rx2, ok := getCompiledRegex(pattern)
	if !ok {
		t.Fatal("pattern missing from cache")
	}
	if rx1 != rx2 {
		t.Error("expected the cached *regexp.Regexp instance")
	}
}
