package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/model"
)

func newTestManager() *TokenManager {
	return NewTokenManager("test-secret-key", time.Hour, "test-issuer")
}

func TestTokenManagerGenerateAndVerify(t *testing.T) {
	manager := newTestManager()

	token, err := manager.Generate("user-123", "test@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestTokenManagerRejectsTamperedToken(t *testing.T) {
	manager := newTestManager()

	token, err := manager.Generate("user-123", "test@example.com")
	require.NoError(t, err)

	_, err = manager.Verify(token + "x")
	assert.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = manager.Verify("not-a-token")
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestTokenManagerRejectsWrongSecret(t *testing.T) {
	token, err := newTestManager().Generate("user-123", "test@example.com")
	require.NoError(t, err)

	other := NewTokenManager("different-secret", time.Hour, "test-issuer")
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestTokenManagerRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager("test-secret-key", -time.Minute, "test-issuer")

	token, err := manager.Generate("user-123", "test@example.com")
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}
