package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"leadgen-agent/internal/domain"
)

func TestNewThrottledGenerator_DisabledReturnsNext(t *testing.T) {
	gen := &scriptedGenerator{}
	require.Same(t, gen, NewThrottledGenerator(gen, 0, 5, nil))
}

func TestThrottledGenerator_PassesThrough(t *testing.T) {
	gen := &scriptedGenerator{responses: []genResponse{{text: "one"}, {text: "two"}}}
	var waits []float64
	throttled := NewThrottledGenerator(gen, 1000, 0, func(s float64) { waits = append(waits, s) })

	out, err := throttled.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	require.Equal(t, "one", out.Text)
	out, err = throttled.Generate(context.Background(), domain.GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	require.Equal(t, "two", out.Text)
	require.Len(t, waits, 2)
}

func TestThrottledGenerator_CanceledContext(t *testing.T) {
	gen := &scriptedGenerator{responses: []genResponse{{text: "one"}}}
	throttled := NewThrottledGenerator(gen, 0.001, 1, nil)

	_, err := throttled.Generate(context.Background(), domain.GenerateRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = throttled.Generate(ctx, domain.GenerateRequest{})
	require.Error(t, err)
	require.Equal(t, 1, gen.callCount())
}
