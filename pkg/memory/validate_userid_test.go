package memory

import (
	"errors"
	"strings"
	"testing"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateUserID(t *testing.T) {
	cases := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"simple alphanumeric", "alice123", false},
		{"with underscore and hyphen", "alice_the-user", false},
		{"empty", "", true},
		{"contains space", "alice smith", true},
		{"contains slash", "alice/../etc", true},
		{"contains dot", "alice.smith", true},
		{"exactly 50 chars is allowed", strings.Repeat("a", 50), false},
		{"51 chars is too long", strings.Repeat("a", 51), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUserID(tc.userID)
			if tc.wantErr {
				assert.Error(t, err)

				var target *newssparkerrors.InvalidUserId
				assert.True(t, errors.As(err, &target))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
