package main

import (
	"context"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/appforge/flowcore/pkg/cmd"
	"github.com/appforge/flowcore/pkg/dispatch"
	"github.com/appforge/flowcore/pkg/engine"
	"github.com/appforge/flowcore/pkg/events"
	"github.com/appforge/flowcore/pkg/log"
	"github.com/appforge/flowcore/pkg/otelhelper"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/worker"
)

func main() {
	command := &cli.Command{
		Name:                  "flowcore-worker",
		Usage:                 "Execute queued workflow runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Postgres connection URL",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "HMAC secret shared with the auth service",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for rate limits and token revocation",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "API key for the summarize block",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "mail-service-url",
				Usage:   "Base URL of the mail delivery service",
				Sources: cli.EnvVars("MAIL_SERVICE_URL"),
			},
			&cli.StringFlag{
				Name:    "mail-api-key",
				Usage:   "API key for the mail delivery service",
				Sources: cli.EnvVars("MAIL_API_KEY"),
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

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("worker")
	logger.InfoContext(ctx, "Initializing Flowcore Worker")

	db := cmd.NewDatabase(ctx, command.String("database-url"))
	defer func() {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close database", "error", err)
		}
	}()

	redisClient := cmd.NewRedisClient(command.String("redis-url"))

	tablesService := cmd.NewTables(ctx, logger, db)
	deps := cmd.NewDependencies(logger, db, tablesService, redisClient, cmd.CollaboratorConfig{
		JWTSecret:      command.String("jwt-secret"),
		OpenAIKey:      command.String("openai-api-key"),
		MailServiceURL: command.String("mail-service-url"),
		MailAPIKey:     command.String("mail-api-key"),
	})

	registry := cmd.NewRegistry(logger, deps)

	eventBus := cmd.NewEventBus(command.String("event-bus"), "flowcore-worker", command.String("kafka-brokers"), logger)

	opts := []engine.Option{}

	tracer, err := otelhelper.NewTracer(ctx, "flowcore-worker")
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)
	} else {
		opts = append(opts, engine.WithTracer(tracer))
	}

	runner := engine.NewRunner(logger, registry, security.NewPostgresAccessChecker(db, logger), opts...)
	store := dispatch.NewPostgresGraphSource(db, logger)

	dispatcher := dispatch.NewDispatcher(logger, store, eventBus)

	err = eventBus.Handle(events.RecordCreatedEvent, func(ctx context.Context, event any) error {
		created, ok := event.(*events.RecordCreated)
		if !ok {
			return nil
		}

		return dispatcher.HandleRecordCreated(ctx, created)
	})
	if err != nil {
		return err
	}

	scheduler := dispatch.NewScheduler(logger, eventBus)
	if err := registerSchedules(ctx, logger, store, scheduler); err != nil {
		logger.WarnContext(ctx, "Failed to register schedules", "error", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	w := worker.NewWorker(logger, runner, eventBus)

	return w.Start(ctx)
}

// registerSchedules scans published workflows for onSchedule triggers
// and arms a cron entry per trigger node.
func registerSchedules(ctx context.Context, logger *slog.Logger, store *dispatch.PostgresGraphSource, scheduler *dispatch.Scheduler) error {
	graphs, err := store.ListPublished(ctx)
	if err != nil {
		return err
	}

	total := 0

	for _, stored := range graphs {
		count, err := scheduler.RegisterGraph(ctx, stored)
		if err != nil {
			logger.WarnContext(ctx, "Skipping workflow schedule",
				"workflow_id", stored.ID, "error", err)

			continue
		}

		total += count
	}

	logger.InfoContext(ctx, "Schedules registered", "count", total)

	return nil
}
