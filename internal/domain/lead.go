package domain

import (
	"strings"
	"time"
)

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	StatusDiscovered  LeadStatus = "DISCOVERED"
	StatusContacted   LeadStatus = "CONTACTED"
	StatusNegotiating LeadStatus = "NEGOTIATING"
	StatusConverted   LeadStatus = "CONVERTED"
	StatusRejected    LeadStatus = "REJECTED"
)

// Tier is the coarse qualification bucket assigned at scan time.
type Tier string

const (
	TierHot      Tier = "HOT"
	TierWarm     Tier = "WARM"
	TierCold     Tier = "COLD"
	TierUnscored Tier = "UNSCORED"
)

// Role identifies who authored a message-log entry.
type Role string

const (
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

// MessageLog is one append-only conversation entry.
type MessageLog struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Lead is a prospective business tracked through qualification and outreach.
// A nil Website means no online presence was detected.
type Lead struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	City           string       `json:"city"`
	Phone          string       `json:"phone"`
	PhoneE164      string       `json:"phoneE164,omitempty"`
	Website        *string      `json:"website"`
	SourceURL      string       `json:"sourceUrl,omitempty"`
	Assessment     string       `json:"assessment,omitempty"`
	Tier           Tier         `json:"tier"`
	Status         LeadStatus   `json:"status"`
	History        []MessageLog `json:"history"`
	CreatedAt      time.Time    `json:"createdAt"`
	MeetingID      string       `json:"meetingId,omitempty"`
	EstimatedValue *int         `json:"estimatedValue,omitempty"`
	DraftMessage   string       `json:"draftMessage,omitempty"`
}

// LeadPatch is a shallow partial update. Nil fields are left untouched.
type LeadPatch struct {
	Status         *LeadStatus
	Tier           *Tier
	History        []MessageLog
	MeetingID      *string
	EstimatedValue *int
	DraftMessage   *string
}

// Apply merges the non-nil fields of p into l.
func (p LeadPatch) Apply(l *Lead) {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Tier != nil {
		l.Tier = *p.Tier
	}
	if p.History != nil {
		l.History = append([]MessageLog(nil), p.History...)
	}
	if p.MeetingID != nil {
		l.MeetingID = *p.MeetingID
	}
	if p.EstimatedValue != nil {
		v := *p.EstimatedValue
		l.EstimatedValue = &v
	}
	if p.DraftMessage != nil {
		l.DraftMessage = *p.DraftMessage
	}
}

// Clone returns a deep copy so callers never share history slices or pointers.
func (l Lead) Clone() Lead {
	out := l
	if l.Website != nil {
		w := *l.Website
		out.Website = &w
	}
	if l.EstimatedValue != nil {
		v := *l.EstimatedValue
		out.EstimatedValue = &v
	}
	if l.History != nil {
		out.History = append([]MessageLog(nil), l.History...)
	}
	return out
}

// DedupKey identifies a business across scans: name and city, trimmed and
// compared case-insensitively.
func (l Lead) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(l.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(l.City))
}

// Pristine reports whether the lead is still untouched by outreach: DISCOVERED,
// with no history and nothing booked.
func (l Lead) Pristine() bool {
	return l.Status == StatusDiscovered && len(l.History) == 0 && l.MeetingID == "" && l.EstimatedValue == nil
}
