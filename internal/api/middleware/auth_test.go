package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

var alice = models.Identity{UID: "user-a", Email: "alice@icd.example", Department: "Finance", FullName: "Alice"}

func newAuthHandler(t *testing.T, buf *bytes.Buffer) (echo.HandlerFunc, *auth.TokenVerifier) {
	t.Helper()
	verifier := auth.NewTokenVerifier(testSecret, time.Hour)
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(buf, nil)))
	handler := IdentityAuth(verifier, audit)(func(c echo.Context) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return c.String(http.StatusTeapot, "no identity")
		}
		return c.String(http.StatusOK, identity.UID)
	})
	return handler, verifier
}

func TestIdentityAuth_MissingToken(t *testing.T) {
	var buf bytes.Buffer
	handler, _ := newAuthHandler(t, &buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/inbox", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.Contains(t, buf.String(), "missing token")
}

func TestIdentityAuth_InvalidToken(t *testing.T) {
	var buf bytes.Buffer
	handler, _ := newAuthHandler(t, &buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/inbox", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.NotContains(t, buf.String(), "not-a-jwt")
}

func TestIdentityAuth_TokenSignedWithOtherSecret(t *testing.T) {
	var buf bytes.Buffer
	handler, _ := newAuthHandler(t, &buf)
	token, err := auth.NewTokenVerifier("another-secret-another-secret-xx", time.Hour).Issue(alice)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/inbox", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Error(t, handler(c))
}

func TestIdentityAuth_ValidBearerToken(t *testing.T) {
	var buf bytes.Buffer
	handler, verifier := newAuthHandler(t, &buf)
	token, err := verifier.Issue(alice)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/inbox", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-a", rec.Body.String())

	stored, ok := c.Get(IdentityKey).(models.Identity)
	require.True(t, ok)
	assert.Equal(t, "alice@icd.example", stored.Email)
	assert.Empty(t, buf.String())
}

func TestIdentityAuth_TokenQueryParam(t *testing.T) {
	var buf bytes.Buffer
	handler, verifier := newAuthHandler(t, &buf)
	token, err := verifier.Issue(alice)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	assert.Equal(t, "user-a", rec.Body.String())
}
