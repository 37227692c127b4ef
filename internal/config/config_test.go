package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leadgen-agent/internal/domain"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1, cfg.Booking.DayOffset)
	require.Equal(t, "10:00 AM", cfg.Booking.Time)
	require.Equal(t, domain.MeetingDiscoveryCall, cfg.Booking.MeetingType)
	require.Equal(t, 2500, cfg.Booking.EstimatedValue)
	require.Equal(t, []string{"tomorrow", "call"}, cfg.Pilot.ConversionKeywords)
}

func TestDecode_OverlaysDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
lead_count: 8
grounding:
  web_search: false
  maps: true
  location:
    latitude: 30.27
    longitude: -97.74
pilot:
  mode: manual
  reply_delay: 250ms
  conversion_policy: always
booking:
  meeting_type: Design Review
  estimated_value: 4000
`))
	require.NoError(t, err)

	require.Equal(t, 8, cfg.LeadCount)
	require.Equal(t, "gemini-3-flash-preview", cfg.Model)
	require.True(t, cfg.Grounding.Maps)
	require.False(t, cfg.Grounding.WebSearch)
	require.Equal(t, &domain.LatLng{Latitude: 30.27, Longitude: -97.74}, cfg.Grounding.Location)
	require.Equal(t, ModeManual, cfg.Pilot.Mode)
	require.Equal(t, 250*time.Millisecond, cfg.Pilot.ReplyDelay)
	require.Equal(t, PolicyAlways, cfg.Pilot.ConversionPolicy)
	require.Equal(t, domain.MeetingDesignReview, cfg.Booking.MeetingType)
	require.Equal(t, 4000, cfg.Booking.EstimatedValue)
	require.Equal(t, "10:00 AM", cfg.Booking.Time)
	require.Equal(t, "---NEXT_BUSINESS---", cfg.Parser.Delimiter)
}

func TestDecode_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("lead_cnt: 3\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "lead_cnt")
}

func TestDecode_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"mode":          "pilot:\n  mode: turbo\n",
		"policy":        "pilot:\n  conversion_policy: maybe\n",
		"lead count":    "lead_count: 0\n",
		"negative":      "pilot:\n  reply_delay: -1s\n",
		"meeting type":  "booking:\n  meeting_type: Lunch\n",
		"no keywords":   "pilot:\n  conversion_keywords: []\n",
		"location only": "grounding:\n  location:\n    latitude: 1\n    longitude: 2\n",
		"region":        "phone_region: USA\n",
	}
	for name, doc := range cases {
		_, err := Decode(strings.NewReader(doc))
		require.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gemini-2.5-flash\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-flash", cfg.Model)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvFiles_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LEADGEN_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("LEADGEN_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("LEADGEN_TEST_VALUE"))

	require.NoError(t, LoadEnvFiles())
	require.Equal(t, "from-file", os.Getenv("LEADGEN_TEST_VALUE"))
}
