package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", "home-services", time.Hour)

	access, err := tm.Issue(42, "alice@example.com", "user")
	require.NoError(t, err)
	assert.NotEmpty(t, access.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), access.Exp, 5*time.Second)

	claims, err := tm.Verify(access.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	id, err := claims.PrincipalID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	issuer := NewTokenManager("test-secret", "home-services", 7*24*time.Hour).WithClock(past)

	access, err := issuer.Issue(1, "bob@example.com", "worker")
	require.NoError(t, err)

	// Valid when checked at issue time.
	_, err = issuer.Verify(access.Token)
	require.NoError(t, err)

	_, err = NewTokenManager("test-secret", "home-services", 7*24*time.Hour).Verify(access.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManager_RejectsTampering(t *testing.T) {
	tm := NewTokenManager("test-secret", "home-services", time.Hour)
	access, err := tm.Issue(1, "bob@example.com", "user")
	require.NoError(t, err)

	tests := []struct {
		name string
		tm   *TokenManager
		raw  string
	}{
		{"other secret", NewTokenManager("other-secret", "home-services", time.Hour), access.Token},
		{"other issuer", NewTokenManager("test-secret", "someone-else", time.Hour), access.Token},
		{"garbage", tm, "not.a.jwt"},
		{"empty", tm, ""},
		{"truncated signature", tm, access.Token[:len(access.Token)-4]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.tm.Verify(tc.raw)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}
