// Package main provides the OneAPI execution gateway server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/oneapi/pkg/binding"
	"github.com/dukex/oneapi/pkg/broker"
	"github.com/dukex/oneapi/pkg/cmd"
	"github.com/dukex/oneapi/pkg/comfy"
	"github.com/dukex/oneapi/pkg/config"
	"github.com/dukex/oneapi/pkg/convert"
	"github.com/dukex/oneapi/pkg/log"
	"github.com/dukex/oneapi/pkg/media"
	"github.com/dukex/oneapi/pkg/metrics"
	"github.com/dukex/oneapi/pkg/schema"
	"github.com/dukex/oneapi/pkg/services"
	"github.com/dukex/oneapi/pkg/web"
)

const (
	defaultPort      = 8189
	defaultSchemaTTL = 5 * time.Minute
)

func main() {
	command := &cli.Command{
		Name:                  "oneapi-server",
		Usage:                 "Execute engine workflows through a single HTTP call",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "engine-url",
				Usage:   "Base URL of the job engine",
				Value:   comfy.DefaultBaseURL,
				Sources: cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "public-url",
				Usage:   "Artifact base URL for requests without a Host header (defaults to the engine URL)",
				Sources: cli.EnvVars("PUBLIC_URL"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Saved workflow store (file://path or postgres://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers for the kafka event bus",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared schema cache (in-memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "schema-ttl",
				Usage:   "How long a fetched node schema catalog is reused",
				Value:   defaultSchemaTTL,
				Sources: cli.EnvVars("SCHEMA_TTL"),
			},
			&cli.StringFlag{
				Name:    "schema-refresh",
				Usage:   "Cron spec for refreshing the node schema catalog (disabled when empty)",
				Sources: cli.EnvVars("SCHEMA_REFRESH"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Delay between history polls",
				Value:   broker.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "policy-file",
				Usage:   "YAML deployment policy file",
				Sources: cli.EnvVars("POLICY_FILE"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("server")

	logger.InfoContext(ctx, "Initializing OneAPI server")

	policy, err := config.LoadPolicyOrDefault(command.String("policy-file"))
	if err != nil {
		return err
	}

	tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel"), "oneapi-server")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
		}
	}()

	store, err := cmd.NewPersistence(ctx, log.WithModule("persistence"), command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), log.WithModule("eventbus"))
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := logLifecycle(ctx, eventBus, log.WithModule("lifecycle")); err != nil {
		return err
	}

	cache, closeCache, err := cmd.NewSchemaCache(ctx, command.String("redis-url"), command.Duration("schema-ttl"))
	if err != nil {
		return err
	}

	defer func() {
		if err := closeCache(); err != nil {
			logger.ErrorContext(ctx, "Failed to close schema cache", "error", err)
		}
	}()

	collector := metrics.NewCollector("oneapi")
	engineURL := command.String("engine-url")

	client := comfy.NewClient(engineURL, log.WithModule("comfy"),
		comfy.WithHistoryMode(policy.HistoryMode),
		comfy.WithTracer(tracer),
	)

	catalog := schema.NewCatalog(client, cache, logger)

	if spec := command.String("schema-refresh"); spec != "" {
		refresher := schema.NewRefresher(catalog, logger)
		if err := refresher.Start(ctx, spec); err != nil {
			return fmt.Errorf("failed to schedule schema refresh: %w", err)
		}
		defer refresher.Stop()
	}

	converter := convert.NewConverter(catalog, logger)
	resolver := media.NewResolver(client, logger, media.WithRecorder(collector))
	binder := binding.NewBinder(policy.MediaUploadTypes, resolver, logger)
	executionBroker := broker.New(client, logger,
		broker.WithPublisher(eventBus),
		broker.WithRecorder(collector),
		broker.WithTracer(tracer),
		broker.WithPollInterval(command.Duration("poll-interval")),
	)

	publicURL := command.String("public-url")
	if publicURL == "" {
		publicURL = engineURL
	}

	handlers := web.NewAPIHandlers(
		services.NewExecution(services.NewSource(store, nil), converter, binder, executionBroker, policy, tracer, logger),
		services.NewWorkflow(store, logger),
		services.NewConversion(converter),
		client,
		validator.New(validator.WithRequiredStructEnabled()),
		publicURL,
	)

	api := NewAPI(logger, handlers, collector)

	err = api.Start(ctx, int(command.Int("port")))
	if err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	logger.InfoContext(ctx, "OneAPI server stopped")

	return nil
}
