// Package signer produces detached signatures for auth handshake challenges.
//
// Real deployments sign with a qualified certificate through an external
// crypto provider; Command shells out to such a tool. Fake exists for local
// stands that do not verify signatures.
package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"crptapi/internal/models"

	"github.com/google/uuid"
)

// Signer signs challenge data.
type Signer interface {
	Sign(ctx context.Context, data string) (string, error)
}

// Func adapts a function to Signer.
type Func func(ctx context.Context, data string) (string, error)

func (f Func) Sign(ctx context.Context, data string) (string, error) {
	return f(ctx, data)
}

// New builds the signer selected by cfg.Type.
func New(cfg models.SignerConfig) (Signer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case models.SignerTypeFake:
		return Fake{}, nil
	case models.SignerTypeCommand:
		return &Command{Path: cfg.Command, Args: cfg.Args, Timeout: cfg.Timeout}, nil
	default:
		return nil, fmt.Errorf("unsupported signer type: %s", cfg.Type)
	}
}

// Fake ignores the data and returns base64 of a random UUID.
type Fake struct{}

func (Fake) Sign(_ context.Context, _ string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(uuid.NewString())), nil
}

// Command runs an external program with data on stdin and uses its trimmed
// stdout as the signature.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func (c *Command) Sign(ctx context.Context, data string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("signer %s: %w: %s", c.Path, err, msg)
		}
		return "", fmt.Errorf("signer %s: %w", c.Path, err)
	}

	sig := strings.TrimSpace(stdout.String())
	if sig == "" {
		return "", errors.New("signer " + c.Path + ": empty signature")
	}
	return sig, nil
}
