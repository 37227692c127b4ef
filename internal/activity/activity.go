// Package activity keeps a bounded, in-memory feed of pilot and scan events
// for the operator.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const DefaultCapacity = 200

type Entry struct {
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	LeadID  string    `json:"leadId,omitempty"`
	Message string    `json:"message"`
}

// Log is a fixed-size ring of entries. Every entry is also written to the
// slog logger.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool

	logger *slog.Logger
	now    func() time.Time
}

func New(capacity int, logger *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		entries: make([]Entry, capacity),
		logger:  logger,
		now:     time.Now,
	}
}

func (l *Log) Record(ctx context.Context, kind Kind, leadID, message string) {
	entry := Entry{Time: l.now().UTC(), Kind: kind, LeadID: leadID, Message: message}

	l.mu.Lock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	l.mu.Unlock()

	attrs := []any{slog.String("kind", string(kind))}
	if leadID != "" {
		attrs = append(attrs, slog.String("lead_id", leadID))
	}
	l.logger.Log(ctx, levelFor(kind), message, attrs...)
}

// Entries returns up to limit entries, newest first. A non-positive limit
// returns everything retained.
func (l *Log) Entries(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.full {
		size = len(l.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Entry, 0, limit)
	for i := range limit {
		idx := (l.next - 1 - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}

func levelFor(k Kind) slog.Level {
	switch k {
	case KindWarning:
		return slog.LevelWarn
	case KindError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
