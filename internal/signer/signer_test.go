package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"crptapi/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_Sign(t *testing.T) {
	sig, err := Fake{}.Sign(context.Background(), "challenge")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)
	_, err = uuid.Parse(string(raw))
	assert.NoError(t, err)
}

func TestFunc_Sign(t *testing.T) {
	boom := errors.New("boom")
	s := Func(func(ctx context.Context, data string) (string, error) {
		if data == "bad" {
			return "", boom
		}
		return "signed:" + data, nil
	})

	sig, err := s.Sign(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "signed:d1", sig)

	_, err = s.Sign(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("command signer tests use POSIX tools")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommand_Sign(t *testing.T) {
	requireUnix(t)

	c := &Command{Path: "sh", Args: []string{"-c", "printf 'sig-'; cat"}}
	sig, err := c.Sign(context.Background(), "payload")
	require.NoError(t, err)
	assert.Equal(t, "sig-payload", sig)
}

func TestCommand_Failure(t *testing.T) {
	requireUnix(t)

	c := &Command{Path: "sh", Args: []string{"-c", "echo 'no certificate' >&2; exit 3"}}
	_, err := c.Sign(context.Background(), "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificate")
}

func TestCommand_EmptySignature(t *testing.T) {
	requireUnix(t)

	c := &Command{Path: "sh", Args: []string{"-c", "cat >/dev/null"}}
	_, err := c.Sign(context.Background(), "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty signature")
}

func TestNew(t *testing.T) {
	s, err := New(models.SignerConfig{Type: models.SignerTypeFake})
	require.NoError(t, err)
	assert.IsType(t, Fake{}, s)

	s, err = New(models.SignerConfig{Type: models.SignerTypeCommand, Command: "cryptcp", Args: []string{"-sign"}})
	require.NoError(t, err)
	assert.Equal(t, &Command{Path: "cryptcp", Args: []string{"-sign"}}, s)

	_, err = New(models.SignerConfig{Type: "hsm"})
	assert.Error(t, err)
}
