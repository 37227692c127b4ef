// Package config loads campaign rules: the model, parsing grammar, scoring
// keywords, pilot behavior and booking defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"leadgen-agent/internal/domain"
)

const (
	ModeAutonomous = "autonomous"
	ModeManual     = "manual"

	PolicyKeyword = "keyword"
	PolicyAlways  = "always"
)

type Campaign struct {
	Model       string     `yaml:"model" validate:"required"`
	LeadCount   int        `yaml:"lead_count" validate:"min=1,max=20"`
	Namespace   string     `yaml:"namespace" validate:"required"`
	PhoneRegion string     `yaml:"phone_region" validate:"len=2"`
	Grounding   Grounding  `yaml:"grounding"`
	Parser      Parser     `yaml:"parser"`
	Classifier  Classifier `yaml:"classifier"`
	Pilot       Pilot      `yaml:"pilot"`
	Booking     Booking    `yaml:"booking"`
	RateLimit   RateLimit  `yaml:"rate_limit"`
}

type Grounding struct {
	WebSearch bool           `yaml:"web_search"`
	Maps      bool           `yaml:"maps"`
	Location  *domain.LatLng `yaml:"location"`
}

type Parser struct {
	Delimiter        string `yaml:"delimiter" validate:"required"`
	MinSegmentLength int    `yaml:"min_segment_length" validate:"min=1"`
	NameLabel        string `yaml:"name_label" validate:"required"`
	PhoneLabel       string `yaml:"phone_label" validate:"required"`
	URLLabel         string `yaml:"url_label" validate:"required"`
	InfoLabel        string `yaml:"info_label" validate:"required"`
}

type Classifier struct {
	NegativeKeywords []string `yaml:"negative_keywords"`
	Tiered           bool     `yaml:"tiered"`
}

type Pilot struct {
	Mode               string        `yaml:"mode" validate:"oneof=autonomous manual"`
	ReplyDelay         time.Duration `yaml:"reply_delay"`
	ConversionPolicy   string        `yaml:"conversion_policy" validate:"oneof=keyword always"`
	ConversionKeywords []string      `yaml:"conversion_keywords"`
}

type Booking struct {
	DayOffset      int                `yaml:"day_offset" validate:"min=0,max=365"`
	Time           string             `yaml:"time" validate:"required"`
	MeetingType    domain.MeetingType `yaml:"meeting_type"`
	EstimatedValue int                `yaml:"estimated_value" validate:"min=0"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

func Default() Campaign {
	return Campaign{
		Model:       "gemini-3-flash-preview",
		LeadCount:   5,
		Namespace:   "leadgen_ai_",
		PhoneRegion: "US",
		Grounding:   Grounding{WebSearch: true},
		Parser: Parser{
			Delimiter:        "---NEXT_BUSINESS---",
			MinSegmentLength: 20,
			NameLabel:        "NAME",
			PhoneLabel:       "PHONE",
			URLLabel:         "URL",
			InfoLabel:        "INFO",
		},
		Classifier: Classifier{
			NegativeKeywords: []string{"old", "outdated", "poor", "bad"},
			Tiered:           true,
		},
		Pilot: Pilot{
			Mode:               ModeAutonomous,
			ReplyDelay:         3 * time.Second,
			ConversionPolicy:   PolicyKeyword,
			ConversionKeywords: []string{"tomorrow", "call"},
		},
		Booking: Booking{
			DayOffset:      1,
			Time:           "10:00 AM",
			MeetingType:    domain.MeetingDiscoveryCall,
			EstimatedValue: 2500,
		},
		RateLimit: RateLimit{RequestsPerSecond: 1, Burst: 3},
	}
}

var validate = validator.New()

// Decode reads a YAML campaign from r on top of Default. Unknown keys are
// rejected. Empty input yields the defaults.
func Decode(r io.Reader) (Campaign, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Campaign{}, fmt.Errorf("config: parse campaign: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Campaign{}, err
	}
	return cfg, nil
}

// Load reads the campaign file at path. An empty path yields the defaults.
func Load(path string) (Campaign, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Campaign{}, fmt.Errorf("config: read campaign %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data))
}

func (c Campaign) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid campaign: %w", err)
	}
	if c.Pilot.ReplyDelay < 0 {
		return errors.New("config: invalid campaign: pilot.reply_delay must not be negative")
	}
	if !domain.ValidMeetingType(c.Booking.MeetingType) {
		return fmt.Errorf("config: invalid campaign: unknown meeting type %q", c.Booking.MeetingType)
	}
	if c.Pilot.ConversionPolicy == PolicyKeyword && len(c.Pilot.ConversionKeywords) == 0 {
		return errors.New("config: invalid campaign: keyword policy needs conversion_keywords")
	}
	if c.Grounding.Location != nil && !c.Grounding.Maps {
		return errors.New("config: invalid campaign: grounding.location requires grounding.maps")
	}
	return nil
}

// LoadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Missing files are ignored and existing environment variables win.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: load %s: %w", name, err)
		}
	}
	return nil
}
