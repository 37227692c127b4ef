package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"leadgen-agent/internal/domain"
)

const (
	DefaultNamespace = "leadgen_ai_"
	leadsKey         = "leads"
	meetingsKey      = "meetings"
)

// LeadStore persists all leads as one JSON array under a fixed key. Every
// mutation is a full read-merge-write of that blob, serialized by mu.
type LeadStore struct {
	blobs BlobStore
	key   string
	mu    sync.Mutex
}

// NewLeadStore creates a LeadStore writing under namespace+"leads".
func NewLeadStore(blobs BlobStore, namespace string) (*LeadStore, error) {
	if blobs == nil {
		return nil, errors.New("repository: blob store must not be nil")
	}
	return &LeadStore{blobs: blobs, key: namespace + leadsKey}, nil
}

// Key returns the blob key the store writes to.
func (s *LeadStore) Key() string {
	return s.key
}

// List returns every persisted lead in stored order.
func (s *LeadStore) List(ctx context.Context) ([]domain.Lead, error) {
	return s.load(ctx)
}

// Get returns the lead with id.
func (s *LeadStore) Get(ctx context.Context, id string) (domain.Lead, bool, error) {
	leads, err := s.load(ctx)
	if err != nil {
		return domain.Lead{}, false, err
	}
	for _, l := range leads {
		if l.ID == id {
			return l, true, nil
		}
	}
	return domain.Lead{}, false, nil
}

// Save merges a batch into the stored leads. Identity for deduplication is
// (name, city), compared case-insensitively. New leads come first and within
// the batch the later entry wins. A batch entry replaces a stored lead only
// while that lead is pristine; a lead that has entered outreach is kept
// as stored, with its id, history and meeting.
func (s *LeadStore) Save(ctx context.Context, batch []domain.Lead) error {
	if len(batch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx)
	if err != nil {
		return err
	}
	progressed := make(map[string]domain.Lead)
	for _, l := range existing {
		if !l.Pristine() {
			progressed[l.DedupKey()] = l
		}
	}

	merged := make([]domain.Lead, 0, len(batch)+len(existing))
	index := make(map[string]int, len(batch)+len(existing))
	for _, l := range batch {
		k := l.DedupKey()
		if kept, ok := progressed[k]; ok {
			l = kept
		}
		if i, ok := index[k]; ok {
			merged[i] = l.Clone()
			continue
		}
		index[k] = len(merged)
		merged = append(merged, l.Clone())
	}
	for _, l := range existing {
		k := l.DedupKey()
		if _, ok := index[k]; ok {
			continue
		}
		index[k] = len(merged)
		merged = append(merged, l)
	}
	return s.store(ctx, merged)
}

// Update shallow-merges patch into the lead with id. An unknown id is a
// no-op and reports found=false without error.
func (s *LeadStore) Update(ctx context.Context, id string, patch domain.LeadPatch) (domain.Lead, bool, error) {
	return s.Mutate(ctx, id, func(l *domain.Lead) error {
		patch.Apply(l)
		return nil
	})
}

// Mutate runs fn against the stored lead with id and persists the result.
// Nothing is written when the id is unknown or fn returns an error.
func (s *LeadStore) Mutate(ctx context.Context, id string, fn func(*domain.Lead) error) (domain.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	leads, err := s.load(ctx)
	if err != nil {
		return domain.Lead{}, false, err
	}
	for i := range leads {
		if leads[i].ID != id {
			continue
		}
		updated := leads[i].Clone()
		if err := fn(&updated); err != nil {
			return leads[i], true, err
		}
		updated.ID = id
		leads[i] = updated
		if err := s.store(ctx, leads); err != nil {
			return domain.Lead{}, true, err
		}
		return updated.Clone(), true, nil
	}
	return domain.Lead{}, false, nil
}

// Clear removes every lead.
func (s *LeadStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.blobs.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("repository: clear leads: %w", err)
	}
	return nil
}

func (s *LeadStore) load(ctx context.Context) ([]domain.Lead, error) {
	raw, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("repository: load leads: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []domain.Lead{}, nil
	}
	var leads []domain.Lead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return nil, fmt.Errorf("repository: decode leads: %w", err)
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	return leads, nil
}

func (s *LeadStore) store(ctx context.Context, leads []domain.Lead) error {
	raw, err := json.Marshal(leads)
	if err != nil {
		return fmt.Errorf("repository: encode leads: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("repository: store leads: %w", err)
	}
	return nil
}
