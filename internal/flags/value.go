package flags

import (
	"encoding/json"
	"fmt"
)

// Kind is the discriminant of a variant Value.
type Kind string

// Value kinds. The set is closed: every consumer switching on Kind must
// handle all four shapes.
const (
	KindBoolean Kind = "boolean"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindJSON    Kind = "json"
)

// Value is the tagged union carried by a Variant. It serializes with an
// explicit discriminant: {"type": "...", "data": ...}.
//
// A Value is constructed through one of the typed constructors and read
// through the typed accessors; the zero Value has kind KindBoolean and
// data false.
type Value struct {
	kind Kind
	b    bool
	s    string
	n    float64
	raw  json.RawMessage
}

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{kind: KindBoolean, b: v} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// NumberValue returns a numeric Value.
func NumberValue(v float64) Value { return Value{kind: KindNumber, n: v} }

// JSONValue returns a Value carrying an arbitrary JSON document.
func JSONValue(raw json.RawMessage) Value { return Value{kind: KindJSON, raw: raw} }

// Kind returns the value's discriminant.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindBoolean
	}
	return v.kind
}

// Bool returns the boolean payload and whether the value is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.Kind() == KindBoolean }

// String returns the string payload and whether the value is a string.
func (v Value) String() (string, bool) { return v.s, v.Kind() == KindString }

// Number returns the numeric payload and whether the value is a number.
func (v Value) Number() (float64, bool) { return v.n, v.Kind() == KindNumber }

// JSON returns the raw JSON payload and whether the value is a JSON document.
func (v Value) JSON() (json.RawMessage, bool) { return v.raw, v.Kind() == KindJSON }

// valueWire is the serialized form of Value.
type valueWire struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler with the discriminated wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	var data []byte
	var err error
	switch v.Kind() {
	case KindBoolean:
		data, err = json.Marshal(v.b)
	case KindString:
		data, err = json.Marshal(v.s)
	case KindNumber:
		data, err = json.Marshal(v.n)
	case KindJSON:
		if len(v.raw) == 0 {
			data = []byte("null")
		} else {
			data = v.raw
		}
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueWire{Type: v.Kind(), Data: data})
}

// UnmarshalJSON implements json.Unmarshaler. An unknown type discriminant is
// an error: the union is closed.
func (v *Value) UnmarshalJSON(b []byte) error {
	var wire valueWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case KindBoolean:
		var val bool
		if err := json.Unmarshal(wire.Data, &val); err != nil {
			return fmt.Errorf("boolean value: %w", err)
		}
		*v = BoolValue(val)
	case KindString:
		var val string
		if err := json.Unmarshal(wire.Data, &val); err != nil {
			return fmt.Errorf("string value: %w", err)
		}
		*v = StringValue(val)
	case KindNumber:
		var val float64
		if err := json.Unmarshal(wire.Data, &val); err != nil {
			return fmt.Errorf("number value: %w", err)
		}
		*v = NumberValue(val)
	case KindJSON:
		if !json.Valid(wire.Data) {
			return fmt.Errorf("json value: invalid document")
		}
		*v = JSONValue(append(json.RawMessage(nil), wire.Data...))
	default:
		return fmt.Errorf("unknown value type %q", wire.Type)
	}
	return nil
}
