package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLeadPatch_ApplyLeavesNilFieldsUntouched(t *testing.T) {
	site := "example.com"
	lead := Lead{ID: "a", Name: "Crumbs", Website: &site, Status: StatusDiscovered, Tier: TierWarm, DraftMessage: "hi"}

	status := StatusContacted
	LeadPatch{Status: &status}.Apply(&lead)

	require.Equal(t, StatusContacted, lead.Status)
	require.Equal(t, TierWarm, lead.Tier)
	require.Equal(t, "hi", lead.DraftMessage)
	require.Equal(t, "example.com", *lead.Website)
}

func TestLeadPatch_ApplyIsIdempotent(t *testing.T) {
	status := StatusNegotiating
	value := 2500
	patch := LeadPatch{
		Status:         &status,
		EstimatedValue: &value,
		History:        []MessageLog{{Role: RoleClient, Content: "How much?", Timestamp: time.Unix(10, 0)}},
	}

	once := Lead{ID: "a"}
	patch.Apply(&once)
	twice := Lead{ID: "a"}
	patch.Apply(&twice)
	patch.Apply(&twice)

	require.Equal(t, once, twice)
}

func TestLead_CloneDoesNotShareState(t *testing.T) {
	site := "example.com"
	lead := Lead{Website: &site, History: []MessageLog{{Role: RoleAgent, Content: "hello"}}}
	clone := lead.Clone()

	*clone.Website = "changed.com"
	clone.History[0].Content = "changed"

	require.Equal(t, "example.com", *lead.Website)
	require.Equal(t, "hello", lead.History[0].Content)
}

func TestValidMeetingType(t *testing.T) {
	require.True(t, ValidMeetingType(MeetingDiscoveryCall))
	require.True(t, ValidMeetingType(MeetingDesignReview))
	require.False(t, ValidMeetingType("Lunch"))
}
