package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"leadgen-agent/internal/credential"
	"leadgen-agent/internal/domain"
)

type fakeModels struct {
	resp      *genai.GenerateContentResponse
	err       error
	lastModel string
	lastText  string
	lastCfg   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastCfg = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastText = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:           &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
			GroundingMetadata: &genai.GroundingMetadata{GroundingChunks: chunks},
		}},
	}
}

func newTestClient(t *testing.T, models *fakeModels) (*Client, *[]string) {
	t.Helper()
	var keys []string
	c, err := New(context.Background(), credential.Static("k1"), WithModelsFactory(func(_ context.Context, key string) (ModelsAPI, error) {
		keys = append(keys, key)
		return models, nil
	}))
	require.NoError(t, err)
	return c, &keys
}

func TestNew_NilProvider(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_ResolvesKeyOnce(t *testing.T) {
	models := &fakeModels{resp: textResponse("ok")}
	c, keys := newTestClient(t, models)
	require.True(t, c.Ready())

	for range 3 {
		_, err := c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
		require.NoError(t, err)
	}
	require.Equal(t, []string{"k1"}, *keys)
}

func TestNew_MissingKeyIsNotFatal(t *testing.T) {
	c, err := New(context.Background(), credential.Static(""))
	require.NoError(t, err)
	require.False(t, c.Ready())

	_, err = c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.ErrorIs(t, err, credential.ErrMissing)
}

type failingProvider struct{}

func (failingProvider) APIKey(context.Context) (string, error) { return "", errors.New("ssm down") }

func TestNew_ProviderFailure(t *testing.T) {
	_, err := New(context.Background(), failingProvider{})
	require.ErrorContains(t, err, "ssm down")
}

func TestRekey_RecoversMissingKey(t *testing.T) {
	models := &fakeModels{resp: textResponse("hello")}
	c, err := New(context.Background(), credential.Static(""), WithModelsFactory(func(context.Context, string) (ModelsAPI, error) {
		return models, nil
	}))
	require.NoError(t, err)

	require.ErrorIs(t, c.Rekey(context.Background(), " "), credential.ErrMissing)
	require.NoError(t, c.Rekey(context.Background(), "new-key"))

	out, err := c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	require.Equal(t, "hello", out.Text)
}

func TestGenerate_ReturnsTextAndGroundingLinks(t *testing.T) {
	models := &fakeModels{resp: textResponse("  NAME: A  ",
		&genai.GroundingChunk{Web: &genai.GroundingChunkWeb{URI: "https://web.example/a"}},
		&genai.GroundingChunk{Web: &genai.GroundingChunkWeb{}},
		&genai.GroundingChunk{Maps: &genai.GroundingChunkMaps{URI: "https://maps.example/b"}},
	)}
	c, _ := newTestClient(t, models)

	out, err := c.Generate(context.Background(), domain.GenerateRequest{
		Model:  "gemini-flash",
		Prompt: "find bakeries",
		Tools:  domain.Tools{WebSearch: true},
	})
	require.NoError(t, err)
	require.Equal(t, "NAME: A", out.Text)
	require.Equal(t, []string{"https://web.example/a", "https://maps.example/b"}, out.SourceLinks)
	require.Equal(t, "gemini-flash", models.lastModel)
	require.Equal(t, "find bakeries", models.lastText)
	require.Len(t, models.lastCfg.Tools, 1)
	require.NotNil(t, models.lastCfg.Tools[0].GoogleSearch)
}

func TestGenerate_MapsToolWithLocation(t *testing.T) {
	models := &fakeModels{resp: textResponse("ok")}
	c, _ := newTestClient(t, models)

	_, err := c.Generate(context.Background(), domain.GenerateRequest{
		Model:  "m",
		Prompt: "p",
		Tools:  domain.Tools{WebSearch: true, Maps: true, Location: &domain.LatLng{Latitude: 30.27, Longitude: -97.74}},
	})
	require.NoError(t, err)
	require.Len(t, models.lastCfg.Tools, 2)
	require.NotNil(t, models.lastCfg.Tools[1].GoogleMaps)
	ll := models.lastCfg.ToolConfig.RetrievalConfig.LatLng
	require.InDelta(t, 30.27, *ll.Latitude, 1e-9)
	require.InDelta(t, -97.74, *ll.Longitude, 1e-9)
}

func TestGenerate_NoToolsSendsNilConfig(t *testing.T) {
	models := &fakeModels{resp: textResponse("ok")}
	c, _ := newTestClient(t, models)
	_, err := c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	require.Nil(t, models.lastCfg)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	c, _ := newTestClient(t, &fakeModels{resp: &genai.GenerateContentResponse{}})
	out, err := c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	require.Empty(t, out.Text)
	require.Empty(t, out.SourceLinks)
}

func TestGenerate_APIErrorCarriesStatus(t *testing.T) {
	c, _ := newTestClient(t, &fakeModels{err: genai.APIError{Code: http.StatusNotFound, Status: "NOT_FOUND", Message: "Requested entity was not found."}})
	_, err := c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "Requested entity was not found")
}

func TestGenerate_OtherErrors(t *testing.T) {
	c, _ := newTestClient(t, &fakeModels{err: errors.New("connection reset")})
	_, err := c.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.ErrorContains(t, err, "connection reset")

	_, err = c.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"})
	require.ErrorContains(t, err, "model")
}
