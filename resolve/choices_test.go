package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchChoice(t *testing.T) {
	choices := []string{"Residential", "Industrial"}

	tests := []struct {
		name   string
		value  string
		strict bool
		want   string
		ok     bool
	}{
		{"exact", "Residential", false, "Residential", true},
		{"candidate contains choice", "residential building", false, "Residential", true},
		{"choice contains candidate", "indust", false, "Industrial", true},
		{"case insensitive", "RESIDENTIAL", false, "Residential", true},
		{"no match", "Spaceship", false, "", false},
		{"empty candidate", "", false, "", false},
		{"strict exact still works", "Residential", true, "Residential", true},
		{"strict rejects fuzzy", "residential building", true, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MatchChoice(tc.value, choices, tc.strict)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
