package logger_test

import (
	"testing"

	"github.com/calebmorton/vanguard/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"typical address", "user@example.com", "u***@*******.com"},
		{"single char user", "a@x.io", "a@*.io"},
		{"no at sign", "not-an-email", "[invalid-email]"},
		{"two at signs", "a@b@c", "[invalid-email]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, logger.SanitizedEmail(tc.email))
		})
	}
}

func TestShortToken(t *testing.T) {
	assert.Equal(t, "[empty]", logger.ShortToken(""))
	assert.Equal(t, "[short-token]", logger.ShortToken("abcd"))
	assert.Equal(t, "eyJhbGci...", logger.ShortToken("eyJhbGciOiJIUzI1NiJ9"))
}
