package engine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Context carries the per-request attributes a flag is evaluated against.
// It is constructed by the transport layer, used for one evaluation call,
// and discarded. EvaluatedAt is supplied by the caller; the engine never
// reads the wall clock, which keeps evaluation pure and testable.
type Context struct {
	UserID      string         `json:"id,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	EvaluatedAt time.Time      `json:"-"`
}

// attribute resolves a named attribute from the context. The user id is
// reachable under its common aliases as well as through UserID itself.
func (c *Context) attribute(name string) (any, bool) {
	if c == nil {
		return nil, false
	}

	switch strings.ToLower(name) {
	case "id", "user_id", "userid":
		if c.UserID == "" {
			return nil, false
		}
		return c.UserID, true
	}

	if c.Attributes == nil {
		return nil, false
	}
	v, ok := c.Attributes[name]
	return v, ok
}

// stringAttribute resolves an attribute and coerces scalar values to their
// string form. String lists and other shapes do not coerce.
func (c *Context) stringAttribute(name string) (string, bool) {
	v, ok := c.attribute(name)
	if !ok {
		return "", false
	}
	return coerceString(v)
}

func coerceString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float32:
		return formatFloat(float64(val)), true
	case float64:
		return formatFloat(val), true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

// formatFloat renders whole numbers without a trailing ".0" so numeric
// attributes compare cleanly against string rule values.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
