package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test: room id validation accepts the ids clients actually use and rejects
// the rest with a coded error.
func TestValidateRoomID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"main room", "main", false},
		{"lobby code", "t1", false},
		{"punctuation ok", "game-42_x!", false},
		{"max length", strings.Repeat("a", 32), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 33), true},
		{"embedded space", "room one", true},
		{"control character", "room\n", true},
		{"non-ascii", "räum", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "ROOM_ID_INVALID")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
