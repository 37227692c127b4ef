package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/metrics"
	"leadgen-agent/internal/repository"
)

type genResponse struct {
	text  string
	links []string
	err   error
}

// scriptedGenerator answers calls in order from responses.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []genResponse
	calls     []domain.GenerateRequest
}

func (g *scriptedGenerator) Generate(_ context.Context, req domain.GenerateRequest) (domain.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := len(g.calls)
	g.calls = append(g.calls, req)
	if idx >= len(g.responses) {
		return domain.Generation{}, errors.New("no generator response configured")
	}
	r := g.responses[idx]
	return domain.Generation{Text: r.text, SourceLinks: r.links}, r.err
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type generatorFunc func(ctx context.Context, req domain.GenerateRequest) (domain.Generation, error)

func (f generatorFunc) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Generation, error) {
	return f(ctx, req)
}

type statusErr struct {
	code int
}

func (e *statusErr) Error() string       { return fmt.Sprintf("upstream status %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

type testEnv struct {
	leads    *repository.LeadStore
	meetings *repository.MeetingStore
	activity *activity.Log
	metrics  *metrics.Metrics
	logs     *bytes.Buffer
	obs      Observers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	blobs := repository.NewMemoryBlobStore()
	leads, err := repository.NewLeadStore(blobs, repository.DefaultNamespace)
	require.NoError(t, err)
	meetings, err := repository.NewMeetingStore(blobs, repository.DefaultNamespace)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	feed := activity.New(50, logger)
	m := metrics.New()
	return &testEnv{
		leads:    leads,
		meetings: meetings,
		activity: feed,
		metrics:  m,
		logs:     &buf,
		obs:      Observers{Logger: logger, Activity: feed, Metrics: m},
	}
}

// seedLead stores a DISCOVERED lead and returns it.
func (e *testEnv) seedLead(t *testing.T, id, name string, tier domain.Tier) domain.Lead {
	t.Helper()
	l := domain.Lead{
		ID:        id,
		Name:      name,
		City:      "Austin",
		Phone:     "512-555-0100",
		Tier:      tier,
		Status:    domain.StatusDiscovered,
		History:   []domain.MessageLog{},
		CreatedAt: fixedNow,
	}
	require.NoError(t, e.leads.Save(context.Background(), []domain.Lead{l}))
	return l
}

func (e *testEnv) mustGet(t *testing.T, id string) domain.Lead {
	t.Helper()
	l, found, err := e.leads.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	return l
}

var fixedNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func stubUUIDs(t *testing.T) {
	t.Helper()
	orig := newUUID
	n := 0
	newUUID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { newUUID = orig })
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var ue *Error
	require.True(t, errors.As(err, &ue), "expected *usecase.Error, got %T: %v", err, err)
	require.Equal(t, code, ue.Code, "reason=%s err=%v", ue.Reason, ue.Err)
}
