package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/classifier"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/parser"
)

const (
	defaultLeadCount   = 5
	defaultPhoneRegion = "US"
)

// LeadRepository is the persisted lead collection.
type LeadRepository interface {
	List(ctx context.Context) ([]domain.Lead, error)
	Get(ctx context.Context, id string) (domain.Lead, bool, error)
	Save(ctx context.Context, batch []domain.Lead) error
	Update(ctx context.Context, id string, patch domain.LeadPatch) (domain.Lead, bool, error)
	Mutate(ctx context.Context, id string, fn func(*domain.Lead) error) (domain.Lead, bool, error)
	Clear(ctx context.Context) error
}

type ScanConfig struct {
	Model       string
	LeadCount   int
	Tools       domain.Tools
	PhoneRegion string
	Grammar     parser.Grammar
}

type ScanInput struct {
	City    string `validate:"required,max=100"`
	Keyword string `validate:"required,max=100"`
}

// ScanOutput holds the leads produced by one scan. An empty slice is a valid
// outcome, not an error.
type ScanOutput struct {
	Leads []domain.Lead
}

type ScanService struct {
	gen        Generator
	leads      LeadRepository
	parser     *parser.Parser
	classifier classifier.Classifier
	cfg        ScanConfig
	obs        Observers
	validate   *validator.Validate
	now        func() time.Time
}

func NewScanService(gen Generator, leads LeadRepository, c classifier.Classifier, cfg ScanConfig, obs Observers) (*ScanService, error) {
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if leads == nil {
		return nil, errors.New("usecase: lead repository must not be nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if cfg.LeadCount <= 0 {
		cfg.LeadCount = defaultLeadCount
	}
	if strings.TrimSpace(cfg.PhoneRegion) == "" {
		cfg.PhoneRegion = defaultPhoneRegion
	}
	if cfg.Grammar == (parser.Grammar{}) {
		cfg.Grammar = parser.DefaultGrammar()
	}
	p, err := parser.New(cfg.Grammar)
	if err != nil {
		return nil, fmt.Errorf("usecase: build parser: %w", err)
	}
	return &ScanService{
		gen:        gen,
		leads:      leads,
		parser:     p,
		classifier: c,
		cfg:        cfg,
		obs:        obs.withDefaults(),
		validate:   validator.New(),
		now:        time.Now,
	}, nil
}

// Scan asks the generation collaborator for businesses matching keyword in
// city, turns the answer into classified leads and persists them.
func (s *ScanService) Scan(ctx context.Context, in ScanInput) (ScanOutput, error) {
	in.City = strings.TrimSpace(in.City)
	in.Keyword = strings.TrimSpace(in.Keyword)
	if err := s.validate.Struct(in); err != nil {
		return ScanOutput{}, newError(ErrorInvalidInput, "invalid_scan_input", err)
	}

	gen, err := s.gen.Generate(ctx, domain.GenerateRequest{
		Model:  s.cfg.Model,
		Prompt: buildScanPrompt(s.cfg.Grammar, s.cfg.LeadCount, in.City, in.Keyword),
		Tools:  s.cfg.Tools,
	})
	if err != nil {
		s.obs.Metrics.ScanCompleted("error")
		ue := generationError("scan", err)
		s.obs.Activity.Record(ctx, activity.KindError, "", fmt.Sprintf("Scan for %q in %s failed: %s", in.Keyword, in.City, ue.Code))
		return ScanOutput{}, ue
	}

	leads := s.buildLeads(in.City, gen)
	if len(leads) == 0 {
		s.obs.Metrics.ScanCompleted("empty")
		s.obs.Activity.Record(ctx, activity.KindInfo, "", fmt.Sprintf("No leads found for %q in %s", in.Keyword, in.City))
		return ScanOutput{Leads: []domain.Lead{}}, nil
	}

	if err := s.leads.Save(ctx, leads); err != nil {
		s.obs.Metrics.ScanCompleted("error")
		return ScanOutput{}, newError(ErrorInternal, "store_write_error", err)
	}
	leads, err = s.persisted(ctx, leads)
	if err != nil {
		s.obs.Metrics.ScanCompleted("error")
		return ScanOutput{}, newError(ErrorInternal, "store_read_error", err)
	}

	s.obs.Metrics.ScanCompleted("ok")
	for _, l := range leads {
		if l.Pristine() {
			s.obs.Metrics.LeadDiscovered(string(l.Tier))
		}
	}
	s.obs.Activity.Record(ctx, activity.KindSuccess, "", fmt.Sprintf("Found %d leads for %q in %s", len(leads), in.Keyword, in.City))
	return ScanOutput{Leads: leads}, nil
}

// persisted returns the stored record for each scanned business. A business
// already in outreach keeps its stored record, so its id may differ from the
// freshly built one.
func (s *ScanService) persisted(ctx context.Context, built []domain.Lead) ([]domain.Lead, error) {
	stored, err := s.leads.List(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.Lead, len(stored))
	for _, l := range stored {
		byKey[l.DedupKey()] = l
	}
	out := make([]domain.Lead, 0, len(built))
	seen := make(map[string]struct{}, len(built))
	for _, l := range built {
		k := l.DedupKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if kept, ok := byKey[k]; ok {
			l = kept
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *ScanService) buildLeads(city string, gen domain.Generation) []domain.Lead {
	now := s.now().UTC()
	var out []domain.Lead
	index := 0
	for f := range s.parser.Parse(gen.Text) {
		res := s.classifier.Classify(classifier.Input{Website: f.URL, Assessment: f.Info})
		out = append(out, domain.Lead{
			ID:         newUUID(),
			Name:       f.Name,
			City:       city,
			Phone:      f.Phone,
			PhoneE164:  normalizePhone(f.Phone, s.cfg.PhoneRegion),
			Website:    res.Website,
			SourceURL:  sourceLink(gen.SourceLinks, index),
			Assessment: f.Info,
			Tier:       res.Tier,
			Status:     domain.StatusDiscovered,
			History:    []domain.MessageLog{},
			CreatedAt:  now,
		})
		index++
	}
	return out
}

// sourceLink pairs entry i with grounding link i, falling back to the first
// link when there are fewer links than entries.
func sourceLink(links []string, i int) string {
	if i < len(links) && links[i] != "" {
		return links[i]
	}
	if len(links) > 0 {
		return links[0]
	}
	return ""
}

// normalizePhone returns the E.164 form of raw, or "" when raw is not a
// plausible number for region.
func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == parser.DefaultPhone {
		return ""
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
