package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ssmAPI is the minimal AWS SSM interface required by ParamStore.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// tokenPayload is the JSON shape accepted for the stored API key.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStore reads the key from an SSM SecureString parameter holding either
// the raw key or {"token":"..."}.
type ParamStore struct {
	api  ssmAPI
	name string
}

func NewParamStore(api ssmAPI, name string) (*ParamStore, error) {
	if api == nil {
		return nil, errors.New("credential: ssm api must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credential: parameter name is required")
	}
	return &ParamStore{api: api, name: name}, nil
}

func (p *ParamStore) APIKey(ctx context.Context) (string, error) {
	withDecryption := true
	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &p.name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: parameter %q not found", ErrMissing, p.name)
		}
		return "", fmt.Errorf("credential: get parameter %q: %w", p.name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: parameter %q has no value", ErrMissing, p.name)
	}
	return parseToken(*out.Parameter.Value)
}

func parseToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("credential: unmarshal parameter value as JSON: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", ErrMissing
	}
	return raw, nil
}
