package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"leadgen-agent/internal/domain"
)

// MeetingStore persists booked meetings as one JSON array. A lead owns at
// most one meeting.
type MeetingStore struct {
	blobs BlobStore
	key   string
	mu    sync.Mutex
}

// NewMeetingStore creates a MeetingStore writing under namespace+"meetings".
func NewMeetingStore(blobs BlobStore, namespace string) (*MeetingStore, error) {
	if blobs == nil {
		return nil, errors.New("repository: blob store must not be nil")
	}
	return &MeetingStore{blobs: blobs, key: namespace + meetingsKey}, nil
}

// List returns all meetings in booking order.
func (s *MeetingStore) List(ctx context.Context) ([]domain.Meeting, error) {
	return s.load(ctx)
}

// ForLead returns the meeting booked for leadID, if any.
func (s *MeetingStore) ForLead(ctx context.Context, leadID string) (domain.Meeting, bool, error) {
	meetings, err := s.load(ctx)
	if err != nil {
		return domain.Meeting{}, false, err
	}
	for _, m := range meetings {
		if m.LeadID == leadID {
			return m, true, nil
		}
	}
	return domain.Meeting{}, false, nil
}

// Create appends m unless the lead already has a meeting, in which case the
// existing meeting is returned with created=false.
func (s *MeetingStore) Create(ctx context.Context, m domain.Meeting) (domain.Meeting, bool, error) {
	if m.ID == "" || m.LeadID == "" {
		return domain.Meeting{}, false, errors.New("repository: meeting id and lead id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load(ctx)
	if err != nil {
		return domain.Meeting{}, false, err
	}
	for _, existing := range meetings {
		if existing.LeadID == m.LeadID {
			return existing, false, nil
		}
	}
	if err := s.write(ctx, append(meetings, m)); err != nil {
		return domain.Meeting{}, false, err
	}
	return m, true, nil
}

// Remove deletes the meeting with id. An unknown id is a no-op and reports
// false.
func (s *MeetingStore) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	kept := meetings[:0]
	for _, m := range meetings {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(meetings) {
		return false, nil
	}
	if err := s.write(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MeetingStore) write(ctx context.Context, meetings []domain.Meeting) error {
	raw, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("repository: encode meetings: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("repository: store meetings: %w", err)
	}
	return nil
}

func (s *MeetingStore) load(ctx context.Context) ([]domain.Meeting, error) {
	raw, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("repository: load meetings: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []domain.Meeting{}, nil
	}
	var meetings []domain.Meeting
	if err := json.Unmarshal(raw, &meetings); err != nil {
		return nil, fmt.Errorf("repository: decode meetings: %w", err)
	}
	if meetings == nil {
		meetings = []domain.Meeting{}
	}
	return meetings, nil
}
