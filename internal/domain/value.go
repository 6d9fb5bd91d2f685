package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the variants an answer or condition value can take.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueString
	ValueNumber
	ValueStrings
	ValueTime
)

// Value is a tagged variant holding an answer value (or a condition's
// comparison literal): absent, string, number, list of strings, or timestamp.
// The zero Value is absent.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	strs []string
	ts   time.Time
}

func StringValue(s string) Value    { return Value{kind: ValueString, str: s} }
func NumberValue(n float64) Value   { return Value{kind: ValueNumber, num: n} }
func StringsValue(s []string) Value { return Value{kind: ValueStrings, strs: s} }
func TimeValue(t time.Time) Value   { return Value{kind: ValueTime, ts: t} }

// Kind reports which variant the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether the value is unset.
func (v Value) IsAbsent() bool { return v.kind == ValueAbsent }

// IsBlank reports whether the value counts as "no answer given": absent,
// an empty (or whitespace-only) string, or a zero number. Lists and
// timestamps are never blank, even when the list is empty.
func (v Value) IsBlank() bool {
	switch v.kind {
	case ValueAbsent:
		return true
	case ValueString:
		return strings.TrimSpace(v.str) == ""
	case ValueNumber:
		return v.num == 0
	default:
		return false
	}
}

// Text returns the value's string form. Lists are joined with commas as a
// whole, numbers use their shortest decimal representation, timestamps use
// RFC 3339.
func (v Value) Text() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueStrings:
		return strings.Join(v.strs, ",")
	case ValueTime:
		return v.ts.Format(time.RFC3339)
	default:
		return ""
	}
}

// Float returns the value's numeric form, or NaN when the value cannot be
// interpreted as a number. A single-element list coerces through its element;
// a timestamp coerces to its Unix millisecond count.
func (v Value) Float() float64 {
	switch v.kind {
	case ValueNumber:
		return v.num
	case ValueString:
		return parseFloat(v.str)
	case ValueStrings:
		switch len(v.strs) {
		case 0:
			return 0
		case 1:
			return parseFloat(v.strs[0])
		default:
			return math.NaN()
		}
	case ValueTime:
		return float64(v.ts.UnixMilli())
	default:
		return math.NaN()
	}
}

// List returns the element slice and true when the value is a string list.
func (v Value) List() ([]string, bool) {
	if v.kind != ValueStrings {
		return nil, false
	}
	return v.strs, true
}

// Time returns the timestamp and true when the value is a time.
func (v Value) Time() (time.Time, bool) {
	if v.kind != ValueTime {
		return time.Time{}, false
	}
	return v.ts, true
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// MarshalJSON encodes the variant as the plain JSON value it holds.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueStrings:
		return json.Marshal(v.strs)
	case ValueTime:
		return json.Marshal(v.ts.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes null, a string, a number, or an array of strings.
// Any other JSON shape is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Value{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case '[':
		var elems []string
		if err := json.Unmarshal(data, &elems); err != nil {
			return fmt.Errorf("%w: answer arrays must contain only strings", ErrInvalidInput)
		}
		*v = StringsValue(elems)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: unsupported answer value %s", ErrInvalidInput, trimmed)
		}
		*v = NumberValue(n)
		return nil
	}
}
