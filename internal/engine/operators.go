package engine

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/variantd/variantd/internal/flags"
)

// OperatorHandler evaluates one condition operator against a resolved
// context attribute. Handlers never panic: any parse or compile failure
// makes the condition evaluate to false (fail closed), so a malformed rule
// disables a single condition rather than blocking flag evaluation.
type OperatorHandler interface {
	Check(attrValue string, ruleValues []string) bool
}

var (
	operatorHandlers = map[flags.Operator]OperatorHandler{
		flags.OpEquals:     equalsHandler{},
		flags.OpNotEquals:  notEqualsHandler{},
		flags.OpInList:     inListHandler{},
		flags.OpNotInList:  notInListHandler{},
		flags.OpContains:   substringHandler{match: strings.Contains},
		flags.OpStartsWith: substringHandler{match: strings.HasPrefix},
		flags.OpEndsWith:   substringHandler{match: strings.HasSuffix},
		flags.OpRegex:      regexHandler{},
		flags.OpGt:         numericCompareHandler{cmp: func(a, b float64) bool { return a > b }},
		flags.OpGte:        numericCompareHandler{cmp: func(a, b float64) bool { return a >= b }},
		flags.OpLt:         numericCompareHandler{cmp: func(a, b float64) bool { return a < b }},
		flags.OpLte:        numericCompareHandler{cmp: func(a, b float64) bool { return a <= b }},
		flags.OpSemVerGt:   semverCompareHandler{cmp: func(a, b *semver.Version) bool { return a.GreaterThan(b) }},
		flags.OpSemVerLt:   semverCompareHandler{cmp: func(a, b *semver.Version) bool { return a.LessThan(b) }},
	}

	// regexCache keeps compiled patterns for the hot evaluation path.
	// Reads are lock-free and safe for concurrent evaluators; a pattern is
	// compiled at most a handful of times when first seen.
	// Expected value type is *regexp.Regexp.
	regexCache sync.Map
)

func getOperatorHandler(op flags.Operator) (OperatorHandler, bool) {
	h, ok := operatorHandlers[op]
	return h, ok
}

type equalsHandler struct{}

func (equalsHandler) Check(attrValue string, ruleValues []string) bool {
	return len(ruleValues) > 0 && equalsString(attrValue, ruleValues[0])
}

type notEqualsHandler struct{}

func (notEqualsHandler) Check(attrValue string, ruleValues []string) bool {
	return len(ruleValues) > 0 && !equalsString(attrValue, ruleValues[0])
}

type inListHandler struct{}

func (inListHandler) Check(attrValue string, ruleValues []string) bool {
	for _, item := range ruleValues {
		if equalsString(attrValue, item) {
			return true
		}
	}
	return false
}

type notInListHandler struct{}

func (notInListHandler) Check(attrValue string, ruleValues []string) bool {
	return len(ruleValues) > 0 && !(inListHandler{}).Check(attrValue, ruleValues)
}

type substringHandler struct {
	match func(s, substr string) bool
}

func (h substringHandler) Check(attrValue string, ruleValues []string) bool {
	if len(ruleValues) == 0 {
		return false
	}
	return h.match(normalizeCase(attrValue), normalizeCase(ruleValues[0]))
}

type regexHandler struct{}

func (regexHandler) Check(attrValue string, ruleValues []string) bool {
	if len(ruleValues) == 0 {
		return false
	}
	rx, ok := getCompiledRegex(ruleValues[0])
	if !ok {
		return false
	}
	return rx.MatchString(attrValue)
}

type numericCompareHandler struct {
	cmp func(a, b float64) bool
}

func (h numericCompareHandler) Check(attrValue string, ruleValues []string) bool {
	if len(ruleValues) == 0 {
		return false
	}
	attr, err := strconv.ParseFloat(attrValue, 64)
	if err != nil {
		return false
	}
	rule, err := strconv.ParseFloat(ruleValues[0], 64)
	if err != nil {
		return false
	}
	return h.cmp(attr, rule)
}

type semverCompareHandler struct {
	cmp func(a, b *semver.Version) bool
}

func (h semverCompareHandler) Check(attrValue string, ruleValues []string) bool {
	if len(ruleValues) == 0 {
		return false
	}
	attrVer, err := semver.NewVersion(attrValue)
	if err != nil {
		return false
	}
	ruleVer, err := semver.NewVersion(ruleValues[0])
	if err != nil {
		return false
	}
	return h.cmp(attrVer, ruleVer)
}

func getCompiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok
	}

	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}

func equalsString(left, right string) bool {
	return normalizeCase(left) == normalizeCase(right)
}

func normalizeCase(value string) string {
	// Keep case policy centralized; current behavior is case-sensitive.
	return value
}
