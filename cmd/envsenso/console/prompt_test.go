package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		response string
		expected string
	}{
		{"", "y"},
		{"n", "n"},
		{"N", "n"},
		{" y ", "y"},
		{"maybe", "y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, match(tt.response, yesNoConstraints), "response %q", tt.response)
	}
}
