package capture

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	long := strings.Repeat("x", 51)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 42, "42"},
		{"uint8", uint8(7), "7"},
		{"negative int64", int64(-3), "-3"},
		{"float", 1250.5, "1250.5"},
		{"whole float", float64(3), "3"},
		{"json number", json.Number("99.90"), "99.90"},
		{"short string", "Bali", "Bali"},
		{"50 chars kept", strings.Repeat("y", 50), strings.Repeat("y", 50)},
		{"51 chars cut", long, strings.Repeat("x", 20) + "..."},
		{"multibyte counted as runes", strings.Repeat("é", 60), strings.Repeat("é", 20) + "..."},
		{"slice falls back to Sprint", []string{"a", "b"}, "[a b]"},
		{"duration falls back to Sprint", 2 * time.Second, "2s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestSummaryEntry(t *testing.T) {
	assert.Equal(t, "is_published: false → true", SummaryEntry("is_published", false, true))
	assert.Equal(t, "price: 100 → 150.5", SummaryEntry("price", 100, 150.5))
}

func TestEqualValues(t *testing.T) {
	assert.True(t, equalValues(int64(5), 5))
	assert.True(t, equalValues(float64(5), 5))
	assert.False(t, equalValues("5", 5))
	assert.True(t, equalValues([]any{"a"}, []any{"a"}))
	assert.False(t, equalValues(nil, ""))
}
