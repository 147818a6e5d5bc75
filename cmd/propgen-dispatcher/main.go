package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/easeworks/propgen/pkg/cmd"
	"github.com/easeworks/propgen/pkg/downstream"
	"github.com/easeworks/propgen/pkg/log"
	"github.com/easeworks/propgen/pkg/otelhelper"
	"github.com/easeworks/propgen/pkg/outbox"
	"github.com/easeworks/propgen/pkg/webhook"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	command := &cli.Command{
		Name:                  "propgen-dispatcher",
		Usage:                 "Drain the side-effect outbox: webhook deliveries and downstream calls",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "downstream-url",
				Usage:   "Base URL of the downstream function host",
				Sources: cli.EnvVars("DOWNSTREAM_URL"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Usage:   "How often to sweep the outbox for due events",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "delivery-timeout",
				Usage:   "Per-delivery HTTP timeout",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("DELIVERY_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("propgen-dispatcher").With("dispatcher_id", dispatcherID)

			logger.InfoContext(ctx, "Initializing PropGEN Dispatcher")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "propgen-dispatcher", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var tracer trace.Tracer
			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "propgen-dispatcher")
				if err != nil {
					return err
				}
			}

			timeout := command.Duration("delivery-timeout")
			notifier := webhook.NewNotifier(logger, timeout)
			downstreamClient := downstream.NewClient(logger, command.String("downstream-url"), timeout)

			dispatcher := outbox.NewDispatcher(persistence, notifier, downstreamClient, eventBus, tracer, logger)

			manager := NewSweepManager(dispatcher, command.Duration("sweep-interval"), logger)

			return manager.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
