// Package credential resolves the API key for the generation collaborator.
package credential

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrMissing reports that no API key is configured. Callers surface it so the
// operator can supply a key; it is never fatal.
var ErrMissing = errors.New("credential: api key is not set")

// Provider yields the API key.
type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

// Static is a key supplied directly, e.g. entered by the operator.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", ErrMissing
	}
	return key, nil
}

// Env reads the key from a single environment variable.
type Env struct {
	Name string
}

func (e Env) APIKey(context.Context) (string, error) {
	if strings.TrimSpace(e.Name) == "" {
		return "", errors.New("credential: environment variable name is empty")
	}
	key := strings.TrimSpace(os.Getenv(e.Name))
	if key == "" {
		return "", ErrMissing
	}
	return key, nil
}
