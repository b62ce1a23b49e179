package validation

import (
	"bytes"
	"encoding/json"
)

// Body is the decoded "data" object of a request envelope.  Values stay
// raw so the checks can tell a JSON number from a numeric string.
type Body map[string]json.RawMessage

// ParseEnvelope decodes {"data": {...}} and returns the inner object.  A
// missing, null or non-object data member is a validation failure.
func ParseEnvelope(raw []byte) (Body, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Invalid("request body must be JSON")
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '{' {
		return nil, Invalid("data is missing")
	}
	var b Body
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, Invalid("data is missing")
	}
	return b, nil
}

// value decodes a member into a generic Go value with numbers kept as
// json.Number.  Absent members decode to nil.
func (b Body) value(key string) any {
	raw, ok := b[key]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// Has reports whether key is present with a truthy value: not absent and
// not null, false, zero or the empty string.
func (b Body) Has(key string) bool {
	switch v := b.value(key).(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// String returns the member as a string and whether it was one.
func (b Body) String(key string) (string, bool) {
	s, ok := b.value(key).(string)
	return s, ok
}

// Number returns the member as a JSON number and whether it was one.
func (b Body) Number(key string) (json.Number, bool) {
	n, ok := b.value(key).(json.Number)
	return n, ok
}
