package domain

import "time"

type MeetingType string

const (
	MeetingDiscoveryCall  MeetingType = "Discovery Call"
	MeetingProjectKickoff MeetingType = "Project Kickoff"
	MeetingDesignReview   MeetingType = "Design Review"
)

type MeetingStatus string

const MeetingScheduled MeetingStatus = "SCHEDULED"

// Meeting is booked once, when a lead converts. Date and Time are display
// strings rather than calendar values.
type Meeting struct {
	ID        string        `json:"id"`
	LeadID    string        `json:"leadId"`
	LeadName  string        `json:"leadName"`
	Date      string        `json:"date"`
	Time      string        `json:"time"`
	Type      MeetingType   `json:"type"`
	Status    MeetingStatus `json:"status"`
	Phone     string        `json:"phone,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ValidMeetingType reports whether t is one of the supported meeting types.
func ValidMeetingType(t MeetingType) bool {
	switch t {
	case MeetingDiscoveryCall, MeetingProjectKickoff, MeetingDesignReview:
		return true
	}
	return false
}
