package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"leadgen-agent/handler"
	"leadgen-agent/internal/app"
	"leadgen-agent/internal/config"
	"leadgen-agent/internal/credential"
	"leadgen-agent/internal/integrations/gemini"
	"leadgen-agent/internal/integrations/openai"
	"leadgen-agent/internal/logger"
	"leadgen-agent/internal/repository"
	"leadgen-agent/internal/usecase"
)

const (
	storeSQLite   = "sqlite"
	storeRedis    = "redis"
	storeDynamoDB = "dynamodb"
	storeMemory   = "memory"

	providerGemini = "gemini"
	providerOpenAI = "openai"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	campaignFile string
	store        string
	sqlitePath   string
	redisAddr    string
	table        string
	provider     string
	logLevel     string
}

// session is everything a command needs. rekeyer is nil when the provider
// cannot swap keys at runtime.
type session struct {
	app     *app.App
	rekeyer handler.Rekeyer
	logger  *slog.Logger
	close   func() error
}

type sessionOpener func(ctx context.Context, opts globalOptions) (*session, error)

func openSession(ctx context.Context, opts globalOptions) (*session, error) {
	log := logger.New(os.Getenv("APP_ENV"), opts.logLevel, os.Stderr)
	slog.SetDefault(log)

	rules, err := config.Load(opts.campaignFile)
	if err != nil {
		return nil, err
	}

	blobs, closeBlobs, err := openBlobStore(ctx, opts)
	if err != nil {
		return nil, err
	}

	gen, rekeyer, err := openGenerator(ctx, opts.provider)
	if err != nil {
		_ = closeBlobs()
		return nil, err
	}

	a, err := app.New(rules, app.Deps{Generator: gen, Blobs: blobs, Logger: log})
	if err != nil {
		_ = closeBlobs()
		return nil, err
	}
	return &session{app: a, rekeyer: rekeyer, logger: log, close: closeBlobs}, nil
}

func openBlobStore(ctx context.Context, opts globalOptions) (repository.BlobStore, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(opts.store) {
	case storeSQLite, "":
		s, err := repository.OpenSQLiteBlobStore(ctx, opts.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case storeRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis %s: %w", opts.redisAddr, err)
		}
		s, err := repository.NewRedisBlobStore(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, client.Close, nil
	case storeDynamoDB:
		if strings.TrimSpace(opts.table) == "" {
			return nil, nil, errors.New("--table is required for the dynamodb store")
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		s, err := repository.NewDynamoBlobStore(awsdynamodb.NewFromConfig(cfg), opts.table)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case storeMemory:
		return repository.NewMemoryBlobStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", opts.store)
	}
}

func openGenerator(ctx context.Context, provider string) (usecase.Generator, handler.Rekeyer, error) {
	switch strings.ToLower(provider) {
	case providerGemini, "":
		c, err := gemini.New(ctx, credential.Env{Name: "GEMINI_API_KEY"})
		if err != nil {
			return nil, nil, err
		}
		if !c.Ready() {
			slog.Warn("GEMINI_API_KEY is not set; generation will fail until a key is supplied")
		}
		return c, c, nil
	case providerOpenAI:
		var opts []openai.Option
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			opts = append(opts, openai.WithBaseURL(base))
		}
		c, err := openai.NewClient(credential.Env{Name: "OPENAI_API_KEY"}, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", provider)
	}
}
