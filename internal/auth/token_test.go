package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

var testIdentity = models.Identity{
	UID:        "user-a",
	Email:      "alice@example.com",
	Department: "Finance",
	FullName:   "Alice Adams",
}

func TestTokenVerifier_IssueAndVerify(t *testing.T) {
	v := NewTokenVerifier("secret", time.Hour)

	token, err := v.Issue(testIdentity)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity, identity)
}

func TestTokenVerifier_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenVerifier("secret", time.Hour).Issue(testIdentity)
	require.NoError(t, err)

	_, err = NewTokenVerifier("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_RejectsExpired(t *testing.T) {
	v := NewTokenVerifier("secret", time.Minute)
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := v.Issue(testIdentity)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_RejectsMissingClaims(t *testing.T) {
	v := NewTokenVerifier("secret", time.Hour)
	claims := &Claims{UID: "user-a"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_Empty(t *testing.T) {
	_, err := NewTokenVerifier("secret", time.Hour).Verify("  ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestIssue_RequiresValidIdentity(t *testing.T) {
	_, err := NewTokenVerifier("secret", time.Hour).Issue(models.Identity{UID: "x"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_RejectsGatewayNamespace(t *testing.T) {
	v := NewTokenVerifier("secret", time.Hour)

	_, err := v.Issue(models.ExternalIdentity("alice@example.com", ""))
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims := &Claims{UID: "smtp:alice@example.com", Email: "alice@example.com"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("abc"))
}

func TestContext_RoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), testIdentity)
	identity, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, testIdentity, identity)

	_, ok = FromContext(WithIdentity(context.Background(), models.Identity{UID: "no-email"}))
	assert.False(t, ok)
}
