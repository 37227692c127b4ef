package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/metrics"
)

// ActivityRecorder receives operator-visible events.
type ActivityRecorder interface {
	Record(ctx context.Context, kind activity.Kind, leadID, message string)
}

// Observers bundles the logging, activity and metrics sinks shared by the
// services. Zero values are replaced with no-op sinks.
type Observers struct {
	Logger   *slog.Logger
	Activity ActivityRecorder
	Metrics  *metrics.Metrics
}

func (o Observers) withDefaults() Observers {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Activity == nil {
		o.Activity = nopActivity{}
	}
	return o
}

type nopActivity struct{}

func (nopActivity) Record(context.Context, activity.Kind, string, string) {}

var newUUID = func() string {
	return uuid.NewString()
}
