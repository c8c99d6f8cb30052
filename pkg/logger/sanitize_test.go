package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"typical address", "user@example.com", "u***@*******.com"},
		{"single char user", "u@example.com", "u@*******.com"},
		{"subdomain", "user@mail.example.com", "u***@****.*******.com"},
		{"not an email", "garbage", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.email))
		})
	}
}

func TestSensitiveQuery(t *testing.T) {
	assert.True(t, SensitiveQuery("token=abc123"))
	assert.True(t, SensitiveQuery("reset_token=xyz"))
	assert.True(t, SensitiveQuery("Password=hunter2"))
	assert.False(t, SensitiveQuery("limit=10&offset=0"))
	assert.False(t, SensitiveQuery(""))
}
