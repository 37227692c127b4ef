package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"leadgen-agent/internal/domain"
)

func newLeadStore(t *testing.T) (*LeadStore, *MemoryBlobStore) {
	t.Helper()
	blobs := NewMemoryBlobStore()
	s, err := NewLeadStore(blobs, DefaultNamespace)
	require.NoError(t, err)
	return s, blobs
}

func lead(id, name, city string) domain.Lead {
	return domain.Lead{
		ID:        id,
		Name:      name,
		City:      city,
		Phone:     "N/A",
		Tier:      domain.TierCold,
		Status:    domain.StatusDiscovered,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewLeadStore_NilBlobs(t *testing.T) {
	_, err := NewLeadStore(nil, "")
	require.Error(t, err)
}

func TestLeadStore_ListEmpty(t *testing.T) {
	s, _ := newLeadStore(t)
	leads, err := s.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, leads)
	require.Empty(t, leads)
	require.Equal(t, "leadgen_ai_leads", s.Key())
}

func TestLeadStore_SaveDedupesByNameAndCity(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)

	a := lead("id-1", "Sunrise Bakery", "Austin")
	require.NoError(t, s.Save(ctx, []domain.Lead{a}))

	aPrime := lead("id-2", "sunrise bakery ", "AUSTIN")
	aPrime.Tier = domain.TierHot
	require.NoError(t, s.Save(ctx, []domain.Lead{aPrime}))

	leads, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	if diff := cmp.Diff(aPrime, leads[0]); diff != "" {
		t.Fatalf("stored lead mismatch (-want +got):\n%s", diff)
	}
}

func TestLeadStore_SaveNewLeadsFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)

	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin"), lead("2", "B", "Austin")}))
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("3", "C", "Austin"), lead("4", "B", "Austin")}))

	leads, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.ID)
	}
	require.Equal(t, []string{"3", "4", "1"}, ids)
}

func TestLeadStore_SaveKeepsLeadsInOutreach(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin")}))

	value := 2500
	_, _, err := s.Mutate(ctx, "1", func(l *domain.Lead) error {
		l.Status = domain.StatusConverted
		l.History = []domain.MessageLog{{Role: domain.RoleAgent, Content: "hi"}}
		l.MeetingID = "m1"
		l.EstimatedValue = &value
		return nil
	})
	require.NoError(t, err)
	converted, _, err := s.Get(ctx, "1")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, []domain.Lead{lead("2", " a ", "AUSTIN"), lead("3", "B", "Austin")}))

	leads, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	if diff := cmp.Diff(converted, leads[0]); diff != "" {
		t.Fatalf("lead in outreach was replaced (-want +got):\n%s", diff)
	}
	require.Equal(t, "3", leads[1].ID)
}

func TestLeadStore_SaveKeepsContactedLead(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin")}))
	status := domain.StatusContacted
	_, _, err := s.Update(ctx, "1", domain.LeadPatch{Status: &status})
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, []domain.Lead{lead("2", "A", "Austin")}))

	_, found, err := s.Get(ctx, "2")
	require.NoError(t, err)
	require.False(t, found)
	got, found, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.StatusContacted, got.Status)
}

func TestLeadStore_SaveLaterEntryInBatchWins(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)

	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin"), lead("2", "A", "Austin")}))
	leads, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, "2", leads[0].ID)
}

func TestLeadStore_SameNameDifferentCityAreDistinct(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin"), lead("2", "A", "Dallas")}))
	leads, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
}

func TestLeadStore_UpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin"), lead("2", "B", "Austin")}))

	status := domain.StatusContacted
	once, found, err := s.Update(ctx, "1", domain.LeadPatch{Status: &status})
	require.NoError(t, err)
	require.True(t, found)

	twice, found, err := s.Update(ctx, "1", domain.LeadPatch{Status: &status})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, once, twice)

	other, ok, err := s.Get(ctx, "2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StatusDiscovered, other.Status)
}

func TestLeadStore_UpdateUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s, blobs := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin")}))
	before, _, _ := blobs.Get(ctx, s.Key())

	status := domain.StatusContacted
	_, found, err := s.Update(ctx, "missing", domain.LeadPatch{Status: &status})
	require.NoError(t, err)
	require.False(t, found)

	after, _, _ := blobs.Get(ctx, s.Key())
	require.Equal(t, before, after)
}

func TestLeadStore_MutateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin")}))

	boom := errors.New("boom")
	_, found, err := s.Mutate(ctx, "1", func(l *domain.Lead) error {
		l.Status = domain.StatusRejected
		return boom
	})
	require.True(t, found)
	require.ErrorIs(t, err, boom)

	got, _, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDiscovered, got.Status)
}

func TestLeadStore_MutateCannotChangeID(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin")}))

	got, _, err := s.Mutate(ctx, "1", func(l *domain.Lead) error {
		l.ID = "other"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "1", got.ID)
}

func TestLeadStore_ClearThenListIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	require.NoError(t, s.Save(ctx, []domain.Lead{lead("1", "A", "Austin"), lead("2", "B", "Austin")}))

	require.NoError(t, s.Clear(ctx))
	leads, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, leads)

	require.NoError(t, s.Clear(ctx))
}

func TestLeadStore_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	s, blobs := newLeadStore(t)
	require.NoError(t, blobs.Set(ctx, s.Key(), []byte("{not json")))

	_, err := s.List(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode leads")
}

func TestLeadStore_PreservesNullWebsite(t *testing.T) {
	ctx := context.Background()
	s, _ := newLeadStore(t)
	site := "crumb.com"
	withSite := lead("1", "A", "Austin")
	withSite.Website = &site
	require.NoError(t, s.Save(ctx, []domain.Lead{withSite, lead("2", "B", "Austin")}))

	got, _, err := s.Get(ctx, "2")
	require.NoError(t, err)
	require.Nil(t, got.Website)
	got, _, err = s.Get(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "crumb.com", *got.Website)
}

func TestMeetingStore_OneMeetingPerLead(t *testing.T) {
	ctx := context.Background()
	s, err := NewMeetingStore(NewMemoryBlobStore(), DefaultNamespace)
	require.NoError(t, err)

	m := domain.Meeting{ID: "m1", LeadID: "l1", LeadName: "A", Type: domain.MeetingDiscoveryCall}
	got, created, err := s.Create(ctx, m)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, m, got)

	got, created, err = s.Create(ctx, domain.Meeting{ID: "m2", LeadID: "l1"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "m1", got.ID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	found, ok, err := s.ForLead(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "m1", found.ID)

	_, ok, err = s.ForLead(ctx, "l2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMeetingStore_Remove(t *testing.T) {
	ctx := context.Background()
	s, err := NewMeetingStore(NewMemoryBlobStore(), DefaultNamespace)
	require.NoError(t, err)
	_, _, err = s.Create(ctx, domain.Meeting{ID: "m1", LeadID: "l1"})
	require.NoError(t, err)
	_, _, err = s.Create(ctx, domain.Meeting{ID: "m2", LeadID: "l2"})
	require.NoError(t, err)

	removed, err := s.Remove(ctx, "m1")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = s.Remove(ctx, "m1")
	require.NoError(t, err)
	require.False(t, removed)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "m2", all[0].ID)

	_, created, err := s.Create(ctx, domain.Meeting{ID: "m3", LeadID: "l1"})
	require.NoError(t, err)
	require.True(t, created)
}

func TestMeetingStore_RequiresIDs(t *testing.T) {
	s, err := NewMeetingStore(NewMemoryBlobStore(), "")
	require.NoError(t, err)
	_, _, err = s.Create(context.Background(), domain.Meeting{ID: "m1"})
	require.Error(t, err)

	_, err = NewMeetingStore(nil, "")
	require.Error(t, err)
}
