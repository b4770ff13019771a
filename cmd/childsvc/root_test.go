package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsvc/security"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestTokenCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "childsvc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  secret: s3cret\n  issuer: childsvc\n"), 0o600))

	out, err := execute(t, "--config", path, "token", "alice")
	require.NoError(t, err)

	gate := security.NewGate(security.Config{Secret: "s3cret", Issuer: "childsvc"})
	subject, err := gate.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "childsvc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o600))

	_, err := execute(t, "--config", path, "token", "alice")
	assert.ErrorIs(t, err, security.ErrNoSecret)
}

func TestTokenCommand_RequiresSubject(t *testing.T) {
	_, err := execute(t, "token")
	assert.Error(t, err)
}

func TestServeCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "serve")
	assert.Error(t, err)
}
