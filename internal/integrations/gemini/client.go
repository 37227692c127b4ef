// Package gemini adapts the Gemini API to the generation contract:
// prompt + optional Search/Maps grounding in, text + source links out.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"leadgen-agent/internal/credential"
	"leadgen-agent/internal/domain"
)

// ModelsAPI is the slice of *genai.Models used by Client.
type ModelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ModelsFactory builds a ModelsAPI for an API key.
type ModelsFactory func(ctx context.Context, apiKey string) (ModelsAPI, error)

// APIError captures a non-2xx Gemini response with its HTTP status.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: status %d %s: %s", e.StatusCode, e.Status, e.Message)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Client generates content through the Gemini API. The API key is resolved
// once at construction; a missing key leaves the client unusable until
// Rekey supplies one.
type Client struct {
	factory ModelsFactory

	mu     sync.RWMutex
	models ModelsAPI
	keyErr error
}

type Option func(*Client)

// WithModelsFactory replaces the genai-backed factory, mainly for tests.
func WithModelsFactory(f ModelsFactory) Option {
	return func(c *Client) {
		if f != nil {
			c.factory = f
		}
	}
}

func New(ctx context.Context, creds credential.Provider, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, errors.New("gemini: credential provider must not be nil")
	}
	c := &Client{factory: newGenAIModels}
	for _, opt := range opts {
		opt(c)
	}

	key, err := creds.APIKey(ctx)
	if errors.Is(err, credential.ErrMissing) {
		c.keyErr = err
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve api key: %w", err)
	}
	if err := c.Rekey(ctx, key); err != nil {
		return nil, err
	}
	return c, nil
}

// Rekey swaps in a new API key, e.g. after an authentication failure.
func (c *Client) Rekey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return credential.ErrMissing
	}
	models, err := c.factory(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("gemini: create client: %w", err)
	}
	c.mu.Lock()
	c.models = models
	c.keyErr = nil
	c.mu.Unlock()
	return nil
}

// Ready reports whether an API key has been configured.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models != nil
}

func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Generation, error) {
	if strings.TrimSpace(req.Model) == "" {
		return domain.Generation{}, errors.New("gemini: model must not be empty")
	}
	c.mu.RLock()
	models, keyErr := c.models, c.keyErr
	c.mu.RUnlock()
	if models == nil {
		if keyErr == nil {
			keyErr = credential.ErrMissing
		}
		return domain.Generation{}, keyErr
	}

	resp, err := models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), buildConfig(req.Tools))
	if err != nil {
		return domain.Generation{}, wrapError(err)
	}
	if resp == nil {
		return domain.Generation{}, errors.New("gemini: empty response")
	}
	return domain.Generation{
		Text:        strings.TrimSpace(resp.Text()),
		SourceLinks: groundingLinks(resp),
	}, nil
}

func buildConfig(t domain.Tools) *genai.GenerateContentConfig {
	var tools []*genai.Tool
	if t.WebSearch {
		tools = append(tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if t.Maps {
		tools = append(tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
	}
	if len(tools) == 0 {
		return nil
	}
	cfg := &genai.GenerateContentConfig{Tools: tools}
	if t.Maps && t.Location != nil {
		cfg.ToolConfig = &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{
					Latitude:  genai.Ptr(t.Location.Latitude),
					Longitude: genai.Ptr(t.Location.Longitude),
				},
			},
		}
	}
	return cfg
}

// groundingLinks returns web and maps URIs of the first candidate in order.
func groundingLinks(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var links []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil {
			continue
		}
		switch {
		case chunk.Web != nil && chunk.Web.URI != "":
			links = append(links, chunk.Web.URI)
		case chunk.Maps != nil && chunk.Maps.URI != "":
			links = append(links, chunk.Maps.URI)
		}
	}
	return links
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return fmt.Errorf("gemini: generate content: %w", err)
}

func newGenAIModels(ctx context.Context, apiKey string) (ModelsAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}
