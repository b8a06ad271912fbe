package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tate5000/Thera-stack/internal/model"
)

const testSecret = "this-is-a-test-secret-with-32-bytes!"

func testUser(t *testing.T) *model.User {
	t.Helper()
	user, err := model.NewUser(uuid.New(), "doc@example.com", "Doc", "doctor", nil)
	require.NoError(t, err)
	return user
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret, testSecret+"-refresh", time.Hour, 24*time.Hour)
	user := testUser(t)

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed.UserID)
	assert.Equal(t, user.Email, parsed.Email)
	assert.Equal(t, model.RoleDoctor, parsed.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(testSecret, testSecret, time.Hour, time.Hour)
	verifier := NewJWTService("a-completely-different-signing-key!!", testSecret, time.Hour, time.Hour)

	token, _, err := issuer.GenerateAccessToken(testUser(t))
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, testSecret, -time.Minute, time.Hour)

	token, _, err := svc.GenerateAccessToken(testUser(t))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService(testSecret, testSecret, time.Hour, time.Hour)
	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
