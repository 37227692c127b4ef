// Package lifecycle enforces the lead status state machine:
//
//	DISCOVERED -> CONTACTED -> NEGOTIATING -> CONVERTED
//
// with REJECTED reachable from any non-terminal state. CONVERTED and REJECTED
// are terminal. Every transition appends exactly one history entry.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"leadgen-agent/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")
	ErrTerminal          = errors.New("lifecycle: lead is in a terminal state")
	ErrUnexpectedRole    = errors.New("lifecycle: unexpected message role")
	ErrEmptyMessage      = errors.New("lifecycle: transition message must not be empty")
)

type edge struct {
	from domain.LeadStatus
	to   domain.LeadStatus
}

// roles lists the author each happy-path transition's entry must have.
var roles = map[edge]domain.Role{
	{domain.StatusDiscovered, domain.StatusContacted}:  domain.RoleAgent,
	{domain.StatusContacted, domain.StatusNegotiating}: domain.RoleClient,
	{domain.StatusNegotiating, domain.StatusConverted}: domain.RoleAgent,
}

var next = map[domain.LeadStatus]domain.LeadStatus{
	domain.StatusDiscovered:  domain.StatusContacted,
	domain.StatusContacted:   domain.StatusNegotiating,
	domain.StatusNegotiating: domain.StatusConverted,
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s domain.LeadStatus) bool {
	return s == domain.StatusConverted || s == domain.StatusRejected
}

// Known reports whether s is a lifecycle state.
func Known(s domain.LeadStatus) bool {
	switch s {
	case domain.StatusDiscovered, domain.StatusContacted, domain.StatusNegotiating,
		domain.StatusConverted, domain.StatusRejected:
		return true
	}
	return false
}

// Next returns the happy-path successor of s.
func Next(s domain.LeadStatus) (domain.LeadStatus, bool) {
	n, ok := next[s]
	return n, ok
}

// CanTransition reports whether from -> to is a single legal step.
func CanTransition(from, to domain.LeadStatus) bool {
	if !Known(from) || IsTerminal(from) {
		return false
	}
	if to == domain.StatusRejected {
		return true
	}
	n, ok := next[from]
	return ok && n == to
}

// Advance moves lead to status to and appends entry to its history.
// The lead is left untouched when the transition is rejected.
func Advance(lead *domain.Lead, to domain.LeadStatus, entry domain.MessageLog) error {
	if lead == nil {
		return errors.New("lifecycle: lead must not be nil")
	}
	from := lead.Status
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s", ErrTerminal, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if want, ok := roles[edge{from, to}]; ok && entry.Role != want {
		return fmt.Errorf("%w: %s -> %s requires %s, got %q", ErrUnexpectedRole, from, to, want, entry.Role)
	}
	if entry.Role != domain.RoleAgent && entry.Role != domain.RoleClient {
		return fmt.Errorf("%w: %q", ErrUnexpectedRole, entry.Role)
	}
	if strings.TrimSpace(entry.Content) == "" {
		return ErrEmptyMessage
	}

	lead.History = append(lead.History, entry)
	lead.Status = to
	return nil
}
