package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

func session(expires time.Time) domain.Session {
	return domain.Session{
		ID:        "sess-1",
		User:      domain.User{ID: "user-1", Email: "me@example.com"},
		ExpiresAt: expires,
	}
}

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("0123456789abcdef")
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	raw, err := tokens.Issue(session(exp))
	require.NoError(t, err)

	got, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, "user-1", got.User.ID)
	assert.Equal(t, "me@example.com", got.User.Email)
	assert.True(t, got.ExpiresAt.Equal(exp))
}

func TestVerifyRejects(t *testing.T) {
	good := NewTokens("0123456789abcdef")
	other := NewTokens("fedcba9876543210")

	valid, err := good.Issue(session(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	expired, err := good.Issue(session(time.Now().Add(-time.Minute)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: valid},
		{name: "expired", token: expired},
		{name: "garbage", token: "not.a.jwt"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := good
			if tt.name == "wrong secret" {
				verifier = other
			}
			_, err := verifier.Verify(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestIssueRequiresSession(t *testing.T) {
	_, err := NewTokens("0123456789abcdef").Issue(domain.Session{})
	assert.ErrorIs(t, err, domain.ErrNoSession)
}
