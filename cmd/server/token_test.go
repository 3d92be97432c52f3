package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
)

const testSecret = "cli-test-secret-that-is-long-enough"

func TestTokenCmd_IssuesVerifiableToken(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("JWT_SECRET", testSecret)

	var out bytes.Buffer
	cmd := newTokenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--uid", "user-a", "--email", "alice@example.com", "--department", "Finance"})
	require.NoError(t, cmd.Execute())

	identity, err := auth.NewTokenVerifier(testSecret, time.Hour).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "user-a", identity.UID)
	assert.Equal(t, "Finance", identity.Department)
}

func TestTokenCmd_RequiresIdentity(t *testing.T) {
	cmd := newTokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--uid", "user-a"})

	assert.Error(t, cmd.Execute())
}
