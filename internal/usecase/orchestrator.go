package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/lifecycle"
)

// MeetingRepository persists booked meetings.
type MeetingRepository interface {
	List(ctx context.Context) ([]domain.Meeting, error)
	Create(ctx context.Context, m domain.Meeting) (domain.Meeting, bool, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// Mode selects where the prospect's reply comes from.
type Mode string

const (
	// ModeAutonomous simulates the prospect's reply with the generator.
	ModeAutonomous Mode = "autonomous"
	// ModeManual stops after outreach and waits for an operator reply.
	ModeManual Mode = "manual"
)

// ConversionPolicy decides whether a closing message books a meeting.
type ConversionPolicy interface {
	ShouldConvert(closing string) bool
}

// KeywordPolicy converts when the closing message contains any of its
// scheduling-intent words, matched as whole words ignoring case.
type KeywordPolicy struct {
	keywords map[string]struct{}
}

// NewKeywordPolicy builds a KeywordPolicy; no keywords means "tomorrow" and
// "call".
func NewKeywordPolicy(keywords ...string) KeywordPolicy {
	if len(keywords) == 0 {
		keywords = []string{"tomorrow", "call"}
	}
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = struct{}{}
		}
	}
	return KeywordPolicy{keywords: set}
}

func (p KeywordPolicy) ShouldConvert(closing string) bool {
	words := strings.FieldsFunc(strings.ToLower(closing), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := p.keywords[w]; ok {
			return true
		}
	}
	return false
}

// AlwaysConvert books a meeting for every closing message.
type AlwaysConvert struct{}

func (AlwaysConvert) ShouldConvert(string) bool { return true }

// BookingRules are the placeholder slot and value given to a converted lead.
type BookingRules struct {
	DayOffset      int
	Time           string
	MeetingType    domain.MeetingType
	EstimatedValue int
}

func DefaultBookingRules() BookingRules {
	return BookingRules{
		DayOffset:      1,
		Time:           "10:00 AM",
		MeetingType:    domain.MeetingDiscoveryCall,
		EstimatedValue: 2500,
	}
}

// PilotConfig holds the model and the campaign rules for one orchestrator.
type PilotConfig struct {
	Model      string
	Mode       Mode
	ReplyDelay time.Duration
	Policy     ConversionPolicy
	Booking    BookingRules
}

// Outcome is where a single lead's cycle ended.
type Outcome string

const (
	OutcomeConverted     Outcome = "converted"
	OutcomeNegotiating   Outcome = "negotiating"
	OutcomeAwaitingReply Outcome = "awaiting_reply"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailed        Outcome = "failed"
)

type LeadResult struct {
	LeadID  string  `json:"leadId"`
	Name    string  `json:"name"`
	Outcome Outcome `json:"outcome"`
	Step    string  `json:"step,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// RunReport summarizes one pilot run. Canceled is set when the context was
// done before every lead was started; Remaining counts those never started.
type RunReport struct {
	Results   []LeadResult `json:"results"`
	Canceled  bool         `json:"canceled"`
	Remaining int          `json:"remaining"`
}

func (r RunReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// stepError marks which pipeline step failed for a lead.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// Orchestrator drives leads through outreach, reply, negotiation and
// conversion, one lead at a time.
type Orchestrator struct {
	gen      Generator
	leads    LeadRepository
	meetings MeetingRepository
	cfg      PilotConfig
	obs      Observers
	validate *validator.Validate

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewOrchestrator(gen Generator, leads LeadRepository, meetings MeetingRepository, cfg PilotConfig, obs Observers) (*Orchestrator, error) {
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if leads == nil {
		return nil, errors.New("usecase: lead repository must not be nil")
	}
	if meetings == nil {
		return nil, errors.New("usecase: meeting repository must not be nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeAutonomous
	case ModeAutonomous, ModeManual:
	default:
		return nil, fmt.Errorf("usecase: unknown pilot mode %q", cfg.Mode)
	}
	if cfg.ReplyDelay < 0 {
		return nil, errors.New("usecase: reply delay must not be negative")
	}
	if cfg.Policy == nil {
		cfg.Policy = NewKeywordPolicy()
	}
	if cfg.Booking == (BookingRules{}) {
		cfg.Booking = DefaultBookingRules()
	}
	return &Orchestrator{
		gen:      gen,
		leads:    leads,
		meetings: meetings,
		cfg:      cfg,
		obs:      obs.withDefaults(),
		validate: validator.New(),
		sleep:    sleepContext,
		now:      time.Now,
	}, nil
}

// Run processes leads strictly in order. ctx is checked before each lead;
// a lead that has started runs to completion even if ctx is canceled
// meanwhile. Per-lead failures are logged and recorded in the report and
// never stop the batch.
func (o *Orchestrator) Run(ctx context.Context, leads []domain.Lead) (RunReport, error) {
	report := RunReport{Results: make([]LeadResult, 0, len(leads))}
	o.obs.Activity.Record(ctx, activity.KindInfo, "", fmt.Sprintf("Pilot started for %d leads", len(leads)))

	for i, lead := range leads {
		if ctx.Err() != nil {
			report.Canceled = true
			report.Remaining = len(leads) - i
			o.obs.Activity.Record(ctx, activity.KindWarning, "", fmt.Sprintf("Pilot stopped with %d leads remaining", report.Remaining))
			return report, nil
		}
		report.Results = append(report.Results, o.runLead(context.WithoutCancel(ctx), lead))
	}

	o.obs.Activity.Record(ctx, activity.KindInfo, "", fmt.Sprintf("Pilot finished: %d converted, %d failed",
		report.Count(OutcomeConverted), report.Count(OutcomeFailed)))
	return report, nil
}

func (o *Orchestrator) runLead(ctx context.Context, lead domain.Lead) LeadResult {
	res := LeadResult{LeadID: lead.ID, Name: lead.Name}

	current, found, err := o.leads.Get(ctx, lead.ID)
	if err != nil {
		return o.fail(ctx, res, &stepError{step: "load", err: err})
	}
	if !found || current.Status != domain.StatusDiscovered {
		res.Outcome = OutcomeSkipped
		return res
	}

	outcome, err := o.cycle(ctx, current)
	if err != nil {
		return o.fail(ctx, res, err)
	}
	res.Outcome = outcome
	return res
}

func (o *Orchestrator) cycle(ctx context.Context, lead domain.Lead) (Outcome, error) {
	outreach, err := o.generate(ctx, buildOutreachPrompt(lead))
	if err != nil {
		return "", &stepError{step: "outreach", err: err}
	}
	if outreach == "" {
		outreach = fallbackOutreach
	}

	contacted, err := o.advance(ctx, lead.ID, domain.StatusContacted, domain.RoleAgent, outreach, func(l *domain.Lead) {
		l.DraftMessage = ""
	})
	if err != nil {
		return "", &stepError{step: "contacted", err: err}
	}
	o.obs.Activity.Record(ctx, activity.KindInfo, lead.ID, "Outreach sent to "+lead.Name)

	if o.cfg.Mode == ModeManual {
		return OutcomeAwaitingReply, nil
	}

	if err := o.sleep(ctx, o.cfg.ReplyDelay); err != nil {
		return "", &stepError{step: "wait", err: err}
	}

	reply, err := o.generate(ctx, buildSimulatedReplyPrompt(contacted, outreach))
	if err != nil {
		return "", &stepError{step: "reply", err: err}
	}
	if reply == "" {
		return "", &stepError{step: "reply", err: errors.New("empty simulated reply")}
	}
	return o.negotiate(ctx, contacted, reply)
}

// negotiate records the prospect's reply, generates the closing message and
// books a meeting when the conversion policy accepts it.
func (o *Orchestrator) negotiate(ctx context.Context, lead domain.Lead, reply string) (Outcome, error) {
	negotiating, err := o.advance(ctx, lead.ID, domain.StatusNegotiating, domain.RoleClient, reply, nil)
	if err != nil {
		return "", &stepError{step: "negotiating", err: err}
	}
	o.obs.Activity.Record(ctx, activity.KindInfo, lead.ID, lead.Name+" replied")

	closing, err := o.generate(ctx, buildClosingPrompt(negotiating, reply))
	if err != nil {
		return "", &stepError{step: "closing", err: err}
	}
	if closing == "" {
		return "", &stepError{step: "closing", err: errors.New("empty closing message")}
	}

	if !o.cfg.Policy.ShouldConvert(closing) {
		if _, _, err := o.leads.Update(ctx, lead.ID, domain.LeadPatch{DraftMessage: &closing}); err != nil {
			return "", &stepError{step: "draft", err: err}
		}
		o.obs.Activity.Record(ctx, activity.KindInfo, lead.ID, "Negotiation with "+lead.Name+" is still open")
		return OutcomeNegotiating, nil
	}

	meeting, created, err := o.book(ctx, negotiating)
	if err != nil {
		return "", &stepError{step: "booking", err: err}
	}
	value := o.cfg.Booking.EstimatedValue
	if _, err := o.advance(ctx, lead.ID, domain.StatusConverted, domain.RoleAgent, closing, func(l *domain.Lead) {
		l.MeetingID = meeting.ID
		l.EstimatedValue = &value
		l.DraftMessage = ""
	}); err != nil {
		if created {
			o.cancelBooking(ctx, lead.ID, meeting.ID)
		}
		return "", &stepError{step: "converted", err: err}
	}
	o.obs.Activity.Record(ctx, activity.KindSuccess, lead.ID,
		fmt.Sprintf("%s booked: %s on %s at %s", lead.Name, meeting.Type, meeting.Date, meeting.Time))
	return OutcomeConverted, nil
}

// book creates the lead's meeting. created is false when the lead already
// had one.
func (o *Orchestrator) book(ctx context.Context, lead domain.Lead) (domain.Meeting, bool, error) {
	now := o.now()
	return o.meetings.Create(ctx, domain.Meeting{
		ID:        newUUID(),
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		Date:      now.AddDate(0, 0, o.cfg.Booking.DayOffset).Format(time.DateOnly),
		Time:      o.cfg.Booking.Time,
		Type:      o.cfg.Booking.MeetingType,
		Status:    domain.MeetingScheduled,
		Phone:     lead.Phone,
		CreatedAt: now.UTC(),
	})
}

// cancelBooking removes a meeting booked for a lead that could not be
// converted, so no meeting outlives a failed conversion.
func (o *Orchestrator) cancelBooking(ctx context.Context, leadID, meetingID string) {
	if _, err := o.meetings.Remove(ctx, meetingID); err != nil {
		o.obs.Logger.ErrorContext(ctx, "cancel booking failed",
			slog.String("lead_id", leadID),
			slog.String("meeting_id", meetingID),
			slog.Any("err", err),
		)
	}
}

// advance applies a validated transition with its history entry, plus any
// extra field changes, in one store write.
func (o *Orchestrator) advance(ctx context.Context, id string, to domain.LeadStatus, role domain.Role, content string, extra func(*domain.Lead)) (domain.Lead, error) {
	entry := domain.MessageLog{Role: role, Content: content, Timestamp: o.now().UTC()}
	updated, found, err := o.leads.Mutate(ctx, id, func(l *domain.Lead) error {
		if err := lifecycle.Advance(l, to, entry); err != nil {
			return err
		}
		if extra != nil {
			extra(l)
		}
		return nil
	})
	if err != nil {
		return domain.Lead{}, err
	}
	if !found {
		return domain.Lead{}, fmt.Errorf("lead %s no longer exists", id)
	}
	o.obs.Metrics.Transitioned(string(to))
	return updated, nil
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	out, err := o.gen.Generate(ctx, domain.GenerateRequest{Model: o.cfg.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

func (o *Orchestrator) fail(ctx context.Context, res LeadResult, err error) LeadResult {
	step := "unknown"
	var se *stepError
	if errors.As(err, &se) {
		step = se.step
	}
	o.obs.Logger.WarnContext(ctx, "pilot lead failed",
		slog.String("lead_id", res.LeadID),
		slog.String("step", step),
		slog.Any("err", err),
	)
	o.obs.Metrics.OutreachFailed(step)
	o.obs.Activity.Record(ctx, activity.KindWarning, res.LeadID, fmt.Sprintf("Pilot skipped %s after %s failed", res.Name, step))

	res.Outcome = OutcomeFailed
	res.Step = step
	res.Error = err.Error()
	return res
}

type ReplyInput struct {
	LeadID string `validate:"required"`
	Text   string `validate:"required,max=2000"`
}

// Reply injects an operator-supplied prospect reply for a CONTACTED lead and
// continues its cycle from negotiation. Only CONTACTED leads accept a reply.
// A lead left NEGOTIATING, because its closing failed or did not convert, can
// only be rejected from there; a non-converting closing is kept as
// DraftMessage for the operator.
func (o *Orchestrator) Reply(ctx context.Context, in ReplyInput) (domain.Lead, error) {
	in.LeadID = strings.TrimSpace(in.LeadID)
	in.Text = strings.TrimSpace(in.Text)
	if err := o.validate.Struct(in); err != nil {
		return domain.Lead{}, newError(ErrorInvalidInput, "invalid_reply_input", err)
	}

	lead, found, err := o.leads.Get(ctx, in.LeadID)
	if err != nil {
		return domain.Lead{}, newError(ErrorInternal, "store_read_error", err)
	}
	if !found {
		return domain.Lead{}, newError(ErrorNotFound, "lead_not_found", nil)
	}
	if lead.Status != domain.StatusContacted {
		return domain.Lead{}, newError(ErrorInvalidState, "lead_not_awaiting_reply",
			fmt.Errorf("lead is %s: %w", lead.Status, lifecycle.ErrInvalidTransition))
	}

	if _, err := o.negotiate(ctx, lead, in.Text); err != nil {
		o.fail(ctx, LeadResult{LeadID: lead.ID, Name: lead.Name}, err)
		return domain.Lead{}, classifyStepError(err)
	}

	updated, _, err := o.leads.Get(ctx, in.LeadID)
	if err != nil {
		return domain.Lead{}, newError(ErrorInternal, "store_read_error", err)
	}
	return updated, nil
}

// classifyStepError maps a failed pipeline step to a use-case error.
func classifyStepError(err error) *Error {
	var se *stepError
	if !errors.As(err, &se) {
		return newError(ErrorInternal, "pilot_error", err)
	}
	switch {
	case errors.Is(se.err, lifecycle.ErrInvalidTransition),
		errors.Is(se.err, lifecycle.ErrTerminal),
		errors.Is(se.err, lifecycle.ErrUnexpectedRole):
		return newError(ErrorInvalidState, se.step+"_transition_rejected", err)
	}
	switch se.step {
	case "outreach", "reply", "closing":
		return generationError(se.step, se.err)
	}
	return newError(ErrorInternal, se.step+"_error", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
