package pricing

import (
	"math"
	"strconv"
	"strings"
)

// Value is a submitted form value: either a single scalar or a multi-value
// selection (checkbox groups). Comma-joined strings are split into a multi
// value at construction, so matching never has to re-detect the shape.
type Value struct {
	multi bool
	parts []string
}

// Scalar builds a single-value Value. A value containing commas is treated
// as a multi-value encoding and split on them.
func Scalar(raw string) Value {
	if strings.Contains(raw, ",") {
		return Multi(strings.Split(raw, ","))
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Value{}
	}
	return Value{parts: []string{trimmed}}
}

// Multi builds a multi-value Value. Elements are trimmed and blank elements
// are dropped.
func Multi(raw []string) Value {
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	return Value{multi: true, parts: parts}
}

// IsEmpty reports whether the value has no non-blank content.
func (v Value) IsEmpty() bool {
	return len(v.parts) == 0
}

// IsBlankScalar reports whether the value is an absent or blank
// single-value field. An empty multi value is an empty selection, not a
// blank scalar.
func (v Value) IsBlankScalar() bool {
	return !v.multi && len(v.parts) == 0
}

// Contains reports whether want equals the scalar or any element of a multi
// value, comparing case-insensitively after trimming.
func (v Value) Contains(want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	for _, p := range v.parts {
		if strings.ToLower(p) == want {
			return true
		}
	}
	return false
}

// Joined returns the display form of the value: the scalar itself, or the
// elements of a multi value joined with ", ".
func (v Value) Joined() string {
	return strings.Join(v.parts, ", ")
}

// Numeric parses the joined value as a decimal number, returning 0 when it
// does not parse. The engines deliberately treat unparseable input as a
// zero contribution rather than an error.
func (v Value) Numeric() float64 {
	n, err := strconv.ParseFloat(v.Joined(), 64)
	if err != nil {
		return 0
	}
	return n
}

// FormValues maps field IDs to submitted values. Keys no rule references
// are ignored.
type FormValues map[string]Value

// round2 rounds to two decimals, half away from zero.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ClampPrice rounds a computed price to two decimals and floors it at zero.
// Negative intermediate prices are allowed during evaluation; only the
// final result is clamped.
func ClampPrice(x float64) float64 {
	return math.Max(0, round2(x))
}
