package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewToolCode(t *testing.T) {
	tests := []struct {
		name     string
		location Location
		toolID   int
		expected string
	}{
		{
			name:     "Pune tool",
			location: LocationPune,
			toolID:   123,
			expected: "TRM-PNE123",
		},
		{
			name:     "Bangalore tool",
			location: LocationBangalore,
			toolID:   456,
			expected: "TRM-BLR456",
		},
		{
			name:     "Unknown site falls back",
			location: Location("warsaw"),
			toolID:   7,
			expected: "TRM-OTH7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toolCode := NewToolCode(tt.location, tt.toolID)
			actual := toolCode.GenerateToolCode()
			assert.Equal(t, tt.expected, actual)
		})
	}
}
