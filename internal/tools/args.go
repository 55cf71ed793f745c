package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args is a validated argument bag. Numbers arrive as float64 or json.Number
// after the JSON round trip.
type Args map[string]any

// String returns the named argument as a string and whether it was present.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// Token returns the named argument as a trimmed identifier token. Integers
// are formatted without a fractional part.
func (a Args) Token(name string) string {
	v, ok := a.String(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
