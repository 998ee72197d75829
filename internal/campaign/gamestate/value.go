package gamestate

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// ValueKind tags a world state entry.
type ValueKind string

const (
	KindFlag    ValueKind = "flag"
	KindCounter ValueKind = "counter"
	KindText    ValueKind = "text"
	// KindRaw holds any other JSON value verbatim.
	KindRaw ValueKind = "raw"
)

// Value is one world state entry. It encodes as the plain JSON value:
// booleans are flags, integers are counters, strings are text and
// everything else is kept raw.
type Value struct {
	Kind    ValueKind
	Flag    bool
	Counter int
	Text    string
	Raw     json.RawMessage
}

func Flag(v bool) Value           { return Value{Kind: KindFlag, Flag: v} }
func Counter(v int) Value         { return Value{Kind: KindCounter, Counter: v} }
func TextValue(v string) Value    { return Value{Kind: KindText, Text: v} }
func Raw(v json.RawMessage) Value { return Value{Kind: KindRaw, Raw: compact(v)} }

// Truthy reports whether the value counts as set for world-flag checks.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindFlag:
		return v.Flag
	case KindCounter:
		return v.Counter != 0
	case KindText:
		return v.Text != ""
	case KindRaw:
		return len(v.Raw) > 0 && !bytes.Equal(v.Raw, []byte("null"))
	default:
		return false
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindFlag:
		return strconv.FormatBool(v.Flag)
	case KindCounter:
		return strconv.Itoa(v.Counter)
	case KindText:
		return v.Text
	case KindRaw:
		return string(v.Raw)
	default:
		return ""
	}
}

func (v Value) clone() Value {
	if v.Raw != nil {
		v.Raw = bytes.Clone(v.Raw)
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindFlag:
		return json.Marshal(v.Flag)
	case KindCounter:
		return json.Marshal(v.Counter)
	case KindText:
		return json.Marshal(v.Text)
	case KindRaw:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Flag(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	if n, err := strconv.ParseInt(string(data), 10, 0); err == nil {
		*v = Counter(int(n))
		return nil
	}
	// Integral floats such as 5.0 still count, up to the largest integer a
	// float64 holds exactly.
	var f float64
	if err := json.Unmarshal(data, &f); err == nil && f == math.Trunc(f) && math.Abs(f) <= maxExactFloatInt {
		*v = Counter(int(f))
		return nil
	}
	*v = Raw(data)
	return nil
}

const maxExactFloatInt = 1 << 53

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return bytes.Clone(raw)
	}
	return buf.Bytes()
}
