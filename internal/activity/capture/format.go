package capture

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

const (
	longStringThreshold = 50
	previewLength       = 20
)

// SummaryEntry renders one change_summary line, "field: old → new".
func SummaryEntry(field string, oldValue, newValue any) string {
	return field + ": " + FormatValue(oldValue) + " → " + FormatValue(newValue)
}

// FormatValue renders a value for a change summary. Strings over 50
// characters are cut to a 20-character preview followed by "...".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return preview(t)
	case json.Number:
		return t.String()
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	default:
		return fmt.Sprint(v)
	}
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= longStringThreshold {
		return s
	}
	return string(runes[:previewLength]) + "..."
}

// equalValues compares attribute values, treating numbers of different Go
// types as equal when they hold the same value.
func equalValues(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return FormatValue(a) == FormatValue(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case json.Number, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
