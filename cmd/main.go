package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"leadgen-agent/handler"
	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/app"
	campaign "leadgen-agent/internal/config"
	"leadgen-agent/internal/credential"
	"leadgen-agent/internal/integrations/gemini"
	"leadgen-agent/internal/logger"
	"leadgen-agent/internal/metrics"
	"leadgen-agent/internal/repository"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"), os.Stdout)
	slog.SetDefault(log)

	leadsTable := mustEnv("LEADS_TABLE")
	apiKeyParam := mustEnv("API_KEY_PARAM")
	activityCapacity := envInt("ACTIVITY_CAPACITY", activity.DefaultCapacity)

	rules, err := campaign.Load(os.Getenv("CAMPAIGN_FILE"))
	if err != nil {
		slog.Error("failed to load campaign", "err", err)
		os.Exit(1)
	}
	rules.LeadCount = envInt("LEAD_COUNT", rules.LeadCount)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	apiKey, err := credential.NewParamStore(awsssm.NewFromConfig(cfg), apiKeyParam)
	if err != nil {
		slog.Error("failed to create SSM credential provider", "err", err)
		os.Exit(1)
	}
	blobs, err := repository.NewDynamoBlobStore(awsdynamodb.NewFromConfig(cfg), leadsTable)
	if err != nil {
		slog.Error("failed to create blob store", "err", err)
		os.Exit(1)
	}
	gem, err := gemini.New(ctx, apiKey)
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}
	if !gem.Ready() {
		slog.Warn("no API key configured; generation is disabled until one is supplied", "param", apiKeyParam)
	}

	// ---- Handler ----
	a, err := app.New(rules, app.Deps{
		Generator: gem,
		Blobs:     blobs,
		Logger:    log,
		Metrics:   metrics.New(),
		Activity:  activity.New(activityCapacity, log),
	})
	if err != nil {
		slog.Error("failed to wire services", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(a.Dashboard, handler.WithRekeyer(gem), handler.WithLogger(log))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
