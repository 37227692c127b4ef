package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/lifecycle"
)

const defaultRejectReason = "Marked as not interested"

// ActivityFeed exposes recorded activity, newest first.
type ActivityFeed interface {
	Entries(limit int) []activity.Entry
}

type Stats struct {
	TotalLeads    int `json:"totalLeads"`
	FoundToday    int `json:"foundToday"`
	Hot           int `json:"hot"`
	Warm          int `json:"warm"`
	Drafted       int `json:"drafted"`
	Contacted     int `json:"contacted"`
	Negotiating   int `json:"negotiating"`
	Converted     int `json:"converted"`
	Rejected      int `json:"rejected"`
	Meetings      int `json:"meetings"`
	PipelineValue int `json:"pipelineValue"`
}

// Dashboard is the operator-facing entry point used by every surface.
type Dashboard struct {
	scan     *ScanService
	pilot    *Orchestrator
	leads    LeadRepository
	meetings MeetingRepository
	feed     ActivityFeed
	obs      Observers
	now      func() time.Time
}

func NewDashboard(scan *ScanService, pilot *Orchestrator, leads LeadRepository, meetings MeetingRepository, feed ActivityFeed, obs Observers) (*Dashboard, error) {
	if scan == nil {
		return nil, errors.New("usecase: scan service must not be nil")
	}
	if pilot == nil {
		return nil, errors.New("usecase: orchestrator must not be nil")
	}
	if leads == nil || meetings == nil {
		return nil, errors.New("usecase: repositories must not be nil")
	}
	return &Dashboard{
		scan:     scan,
		pilot:    pilot,
		leads:    leads,
		meetings: meetings,
		feed:     feed,
		obs:      obs.withDefaults(),
		now:      time.Now,
	}, nil
}

func (d *Dashboard) Scan(ctx context.Context, in ScanInput) (ScanOutput, error) {
	return d.scan.Scan(ctx, in)
}

func (d *Dashboard) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	leads, err := d.leads.List(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "store_read_error", err)
	}
	return leads, nil
}

func (d *Dashboard) ClearLeads(ctx context.Context) error {
	if err := d.leads.Clear(ctx); err != nil {
		return newError(ErrorInternal, "store_write_error", err)
	}
	d.obs.Activity.Record(ctx, activity.KindInfo, "", "All leads cleared")
	return nil
}

func (d *Dashboard) InjectReply(ctx context.Context, leadID, text string) (domain.Lead, error) {
	return d.pilot.Reply(ctx, ReplyInput{LeadID: leadID, Text: text})
}

// DraftMessage generates an outreach message and stores it on the lead
// without sending it or changing its status.
func (d *Dashboard) DraftMessage(ctx context.Context, leadID string) (domain.Lead, error) {
	lead, err := d.requireLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lifecycle.IsTerminal(lead.Status) {
		return domain.Lead{}, newError(ErrorInvalidState, "lead_closed", lifecycle.ErrTerminal)
	}

	msg, err := d.pilot.generate(ctx, buildOutreachPrompt(lead))
	if err != nil {
		return domain.Lead{}, generationError("draft", err)
	}
	if msg == "" {
		msg = fallbackOutreach
	}

	updated, found, err := d.leads.Update(ctx, lead.ID, domain.LeadPatch{DraftMessage: &msg})
	if err != nil {
		return domain.Lead{}, newError(ErrorInternal, "store_write_error", err)
	}
	if !found {
		return domain.Lead{}, newError(ErrorNotFound, "lead_not_found", nil)
	}
	d.obs.Activity.Record(ctx, activity.KindInfo, lead.ID, "Drafted message for "+lead.Name)
	return updated, nil
}

// RunPilot runs the orchestrator over the given lead ids in order, or over
// every DISCOVERED lead when ids is empty.
func (d *Dashboard) RunPilot(ctx context.Context, ids []string) (RunReport, error) {
	all, err := d.ListLeads(ctx)
	if err != nil {
		return RunReport{}, err
	}

	var batch []domain.Lead
	if len(ids) == 0 {
		for _, l := range all {
			if l.Status == domain.StatusDiscovered {
				batch = append(batch, l)
			}
		}
	} else {
		byID := make(map[string]domain.Lead, len(all))
		for _, l := range all {
			byID[l.ID] = l
		}
		for _, id := range ids {
			l, ok := byID[strings.TrimSpace(id)]
			if !ok {
				return RunReport{}, newError(ErrorNotFound, "lead_not_found", fmt.Errorf("lead %q", id))
			}
			batch = append(batch, l)
		}
	}
	return d.pilot.Run(ctx, batch)
}

// RejectLead closes a non-terminal lead as REJECTED.
func (d *Dashboard) RejectLead(ctx context.Context, leadID, reason string) (domain.Lead, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectReason
	}
	entry := domain.MessageLog{Role: domain.RoleAgent, Content: reason, Timestamp: d.now().UTC()}

	updated, found, err := d.leads.Mutate(ctx, strings.TrimSpace(leadID), func(l *domain.Lead) error {
		return lifecycle.Advance(l, domain.StatusRejected, entry)
	})
	switch {
	case errors.Is(err, lifecycle.ErrTerminal), errors.Is(err, lifecycle.ErrInvalidTransition):
		return domain.Lead{}, newError(ErrorInvalidState, "lead_closed", err)
	case err != nil:
		return domain.Lead{}, newError(ErrorInternal, "store_write_error", err)
	case !found:
		return domain.Lead{}, newError(ErrorNotFound, "lead_not_found", nil)
	}
	d.obs.Metrics.Transitioned(string(domain.StatusRejected))
	d.obs.Activity.Record(ctx, activity.KindInfo, updated.ID, updated.Name+" rejected")
	return updated, nil
}

func (d *Dashboard) ListMeetings(ctx context.Context) ([]domain.Meeting, error) {
	meetings, err := d.meetings.List(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "store_read_error", err)
	}
	return meetings, nil
}

func (d *Dashboard) Stats(ctx context.Context) (Stats, error) {
	leads, err := d.ListLeads(ctx)
	if err != nil {
		return Stats{}, err
	}
	meetings, err := d.ListMeetings(ctx)
	if err != nil {
		return Stats{}, err
	}

	now := d.now()
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())

	s := Stats{TotalLeads: len(leads), Meetings: len(meetings)}
	for _, l := range leads {
		if !l.CreatedAt.Before(today) {
			s.FoundToday++
		}
		switch l.Tier {
		case domain.TierHot:
			s.Hot++
		case domain.TierWarm:
			s.Warm++
		}
		if l.DraftMessage != "" {
			s.Drafted++
		}
		switch l.Status {
		case domain.StatusContacted:
			s.Contacted++
		case domain.StatusNegotiating:
			s.Negotiating++
		case domain.StatusConverted:
			s.Converted++
		case domain.StatusRejected:
			s.Rejected++
		}
		if l.EstimatedValue != nil {
			s.PipelineValue += *l.EstimatedValue
		}
	}
	return s, nil
}

func (d *Dashboard) Activity(limit int) []activity.Entry {
	if d.feed == nil {
		return []activity.Entry{}
	}
	return d.feed.Entries(limit)
}

func (d *Dashboard) requireLead(ctx context.Context, id string) (domain.Lead, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Lead{}, newError(ErrorInvalidInput, "lead_id_required", nil)
	}
	lead, found, err := d.leads.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, newError(ErrorInternal, "store_read_error", err)
	}
	if !found {
		return domain.Lead{}, newError(ErrorNotFound, "lead_not_found", nil)
	}
	return lead, nil
}
