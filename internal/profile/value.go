package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	// Literal values are strings, numbers, booleans, or string lists.
	Literal ValueKind = iota
	// AutoDuration asks for a playback speed that yields a total duration in seconds.
	AutoDuration
	// RelativeDate resolves to a calendar date a number of days before now.
	RelativeDate
)

func (k ValueKind) String() string {
	switch k {
	case AutoDuration:
		return "auto-duration"
	case RelativeDate:
		return "relative-date"
	default:
		return "literal"
	}
}

// Value is a single setting value.
type Value struct {
	Kind ValueKind
	// Lit holds a string, float64, bool, or []string when Kind is Literal.
	Lit any
	// Amount holds seconds for AutoDuration and days for RelativeDate.
	Amount int
}

func String(s string) Value { return Value{Kind: Literal, Lit: s} }
func Number(f float64) Value { return Value{Kind: Literal, Lit: f} }
func Bool(b bool) Value { return Value{Kind: Literal, Lit: b} }
func List(items ...string) Value { return Value{Kind: Literal, Lit: append([]string(nil), items...)} }
func Auto(seconds int) Value { return Value{Kind: AutoDuration, Amount: seconds} }
func Relative(days int) Value { return Value{Kind: RelativeDate, Amount: days} }

var (
	autoPattern     = regexp.MustCompile(`^auto-(\d+)s$`)
	relativePattern = regexp.MustCompile(`^relative-(\d+)([dwmy])$`)
)

var relativeUnitDays = map[string]int{"d": 1, "w": 7, "m": 30, "y": 365}

// ParseString classifies a raw string setting.
func ParseString(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if m := autoPattern.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return Auto(n)
		}
	}
	if m := relativePattern.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Relative(n * relativeUnitDays[m[2]])
		}
	}
	return String(raw)
}

// FromAny converts a decoded JSON or YAML scalar or list into a Value.
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return String(""), nil
	case string:
		return ParseString(v), nil
	case bool:
		return Bool(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case []string:
		return List(v...), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				items = append(items, s)
			case fmt.Stringer:
				items = append(items, s.String())
			default:
				items = append(items, fmt.Sprint(s))
			}
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported setting value of type %T", raw)
	}
}

// BoolValue reports the literal boolean held by v.
func (v Value) BoolValue() (bool, bool) {
	if v.Kind != Literal {
		return false, false
	}
	b, ok := v.Lit.(bool)
	return b, ok
}

// ListValue reports the literal string list held by v.
func (v Value) ListValue() ([]string, bool) {
	if v.Kind != Literal {
		return nil, false
	}
	items, ok := v.Lit.([]string)
	return items, ok
}

// IsEmpty reports whether v carries nothing worth emitting.
func (v Value) IsEmpty() bool {
	if v.Kind != Literal {
		return false
	}
	switch lit := v.Lit.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(lit) == ""
	case []string:
		return len(lit) == 0
	default:
		return false
	}
}

// Text renders v the way it appears on a command line or in storage.
func (v Value) Text() string {
	switch v.Kind {
	case AutoDuration:
		return fmt.Sprintf("auto-%ds", v.Amount)
	case RelativeDate:
		return fmt.Sprintf("relative-%dd", v.Amount)
	}
	switch lit := v.Lit.(type) {
	case nil:
		return ""
	case string:
		return lit
	case bool:
		return strconv.FormatBool(lit)
	case float64:
		return strconv.FormatFloat(lit, 'f', -1, 64)
	case []string:
		return strings.Join(lit, ",")
	default:
		return fmt.Sprint(lit)
	}
}

// Raw converts v back to a plain JSON/YAML-friendly value.
func (v Value) Raw() any {
	if v.Kind != Literal {
		return v.Text()
	}
	if items, ok := v.Lit.([]string); ok {
		return append([]string(nil), items...)
	}
	return v.Lit
}
