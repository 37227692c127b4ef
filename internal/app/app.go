// Package app assembles the services from a campaign and its collaborators.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/classifier"
	"leadgen-agent/internal/config"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/metrics"
	"leadgen-agent/internal/parser"
	"leadgen-agent/internal/repository"
	"leadgen-agent/internal/usecase"
)

// Deps are the collaborators chosen by an entrypoint.
type Deps struct {
	Generator usecase.Generator
	Blobs     repository.BlobStore
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Activity  *activity.Log
}

type App struct {
	Dashboard *usecase.Dashboard
	Leads     *repository.LeadStore
	Meetings  *repository.MeetingStore
	Activity  *activity.Log
	Metrics   *metrics.Metrics
}

// New wires the lead and meeting stores, the scan and pilot services and the
// dashboard over them. The generator is throttled per the campaign.
func New(c config.Campaign, d Deps) (*App, error) {
	if d.Generator == nil {
		return nil, errors.New("app: generator must not be nil")
	}
	if d.Blobs == nil {
		return nil, errors.New("app: blob store must not be nil")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Activity == nil {
		d.Activity = activity.New(activity.DefaultCapacity, d.Logger)
	}

	leads, err := repository.NewLeadStore(d.Blobs, c.Namespace)
	if err != nil {
		return nil, fmt.Errorf("app: lead store: %w", err)
	}
	meetings, err := repository.NewMeetingStore(d.Blobs, c.Namespace)
	if err != nil {
		return nil, fmt.Errorf("app: meeting store: %w", err)
	}

	obs := usecase.Observers{Logger: d.Logger, Activity: d.Activity, Metrics: d.Metrics}
	gen := usecase.NewThrottledGenerator(d.Generator, c.RateLimit.RequestsPerSecond, c.RateLimit.Burst, d.Metrics.ObserveGenerationWait)

	scan, err := usecase.NewScanService(gen, leads, Classifier(c), ScanConfig(c), obs)
	if err != nil {
		return nil, err
	}
	pilot, err := usecase.NewOrchestrator(gen, leads, meetings, PilotConfig(c), obs)
	if err != nil {
		return nil, err
	}
	dash, err := usecase.NewDashboard(scan, pilot, leads, meetings, d.Activity, obs)
	if err != nil {
		return nil, err
	}
	return &App{Dashboard: dash, Leads: leads, Meetings: meetings, Activity: d.Activity, Metrics: d.Metrics}, nil
}

func Classifier(c config.Campaign) classifier.Classifier {
	return classifier.New(c.Classifier.NegativeKeywords, c.Classifier.Tiered)
}

func ScanConfig(c config.Campaign) usecase.ScanConfig {
	return usecase.ScanConfig{
		Model:       c.Model,
		LeadCount:   c.LeadCount,
		PhoneRegion: c.PhoneRegion,
		Tools: domain.Tools{
			WebSearch: c.Grounding.WebSearch,
			Maps:      c.Grounding.Maps,
			Location:  c.Grounding.Location,
		},
		Grammar: parser.Grammar{
			Delimiter:     c.Parser.Delimiter,
			MinSegmentLen: c.Parser.MinSegmentLength,
			NameLabel:     c.Parser.NameLabel,
			PhoneLabel:    c.Parser.PhoneLabel,
			URLLabel:      c.Parser.URLLabel,
			InfoLabel:     c.Parser.InfoLabel,
		},
	}
}

func PilotConfig(c config.Campaign) usecase.PilotConfig {
	var policy usecase.ConversionPolicy = usecase.NewKeywordPolicy(c.Pilot.ConversionKeywords...)
	if c.Pilot.ConversionPolicy == config.PolicyAlways {
		policy = usecase.AlwaysConvert{}
	}
	return usecase.PilotConfig{
		Model:      c.Model,
		Mode:       usecase.Mode(c.Pilot.Mode),
		ReplyDelay: c.Pilot.ReplyDelay,
		Policy:     policy,
		Booking: usecase.BookingRules{
			DayOffset:      c.Booking.DayOffset,
			Time:           c.Booking.Time,
			MeetingType:    c.Booking.MeetingType,
			EstimatedValue: c.Booking.EstimatedValue,
		},
	}
}
