package activity

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLog_NewestFirst(t *testing.T) {
	l := New(10, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	l.Record(ctx, KindInfo, "", "scan started")
	l.Record(ctx, KindSuccess, "lead-1", "converted")

	got := l.Entries(0)
	require.Len(t, got, 2)
	require.Equal(t, "converted", got[0].Message)
	require.Equal(t, "lead-1", got[0].LeadID)
	require.Equal(t, "scan started", got[1].Message)
}

func TestLog_DropsOldestWhenFull(t *testing.T) {
	l := New(3, slog.New(slog.DiscardHandler))
	for i := range 5 {
		l.Record(context.Background(), KindInfo, "", fmt.Sprintf("event %d", i))
	}

	got := l.Entries(0)
	require.Len(t, got, 3)
	require.Equal(t, "event 4", got[0].Message)
	require.Equal(t, "event 2", got[2].Message)

	require.Len(t, l.Entries(2), 2)
	require.Len(t, l.Entries(99), 3)
}

func TestLog_EmptyAndDefaults(t *testing.T) {
	l := New(0, nil)
	require.Empty(t, l.Entries(5))
	require.Len(t, l.entries, DefaultCapacity)
}

func TestLog_MirrorsToSlog(t *testing.T) {
	var buf bytes.Buffer
	l := New(5, slog.New(slog.NewTextHandler(&buf, nil)))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Record(context.Background(), KindWarning, "lead-9", "outreach failed")

	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "lead_id=lead-9")
	require.Equal(t, fixed, l.Entries(1)[0].Time)
}

func TestLog_ConcurrentRecord(t *testing.T) {
	l := New(50, slog.New(slog.DiscardHandler))
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(context.Background(), KindInfo, "", fmt.Sprint(i))
		}()
	}
	wg.Wait()
	require.Len(t, l.Entries(0), 20)
}
