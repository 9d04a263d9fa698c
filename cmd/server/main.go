package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/artifacts"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/indexing"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/notification"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/openaidraft"
	docsoutbox "github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/outbox"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence"
	"github.com/akfbtn1-netizen/docflow/modules/docs/presentation/controllers"
	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
	"github.com/akfbtn1-netizen/docflow/pkg/configuration"
	"github.com/akfbtn1-netizen/docflow/pkg/eventbus"
	"github.com/akfbtn1-netizen/docflow/pkg/metrics"
	"github.com/akfbtn1-netizen/docflow/pkg/outbox"
	"github.com/akfbtn1-netizen/docflow/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()
	logEntry := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(poolCtx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	bus := eventbus.NewEventPublisher(logger)
	bus.Subscribe(func(n services.Notification) {
		logger.WithFields(logrus.Fields{
			"recipient": n.Recipient,
			"severity":  n.Severity,
			"doc_id":    n.DocID.String(),
		}).Info(n.Title + ": " + n.Body)
	})

	records := persistence.NewChangeRecordRepository(pool)
	approvalRepo := persistence.NewApprovalRepository(pool)
	eventRepo := persistence.NewWorkflowEventRepository(pool)
	registry := persistence.NewDocIDRegistry(pool)
	definitionSource := persistence.NewRoutineDefinitionSource(pool)
	routineDocs := persistence.NewRoutineDocRepository(pool)

	eventLog := services.NewEventLogService(eventRepo, logEntry)
	notifier := notification.NewEventBusNotifier(bus)
	ids := services.NewIdentifierService(registry, logEntry)
	extraction := services.NewExtractionService(definitionSource, eventLog, notifier, conf.Extraction.RetryDelay, logEntry)
	enrichmentQueue := docsoutbox.NewEnrichmentQueue(pool)

	approvals := services.NewApprovalService(
		approvalRepo,
		records,
		eventLog,
		notifier,
		enrichmentQueue,
		services.PgxTxRunner(pool),
		services.ApprovalOptions{
			Approvers:       conf.Approval.Approvers,
			DestinationRoot: conf.FinalDir,
		},
		logEntry,
	)

	generator := openaidraft.NewGenerator(conf.OpenAI.Key, conf.OpenAI.Model, conf.DraftsDir, logEntry)
	pipeline := services.NewDraftPipeline(extraction, generator, approvals, eventLog, conf.Watcher.DraftQueueSize, logEntry)
	watcher := services.NewWatcherService(records, ids, eventLog, pipeline, conf.Watcher.PollInterval, logEntry)

	if conf.Watcher.Enabled {
		go func() {
			if err := pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("draft pipeline stopped")
			}
		}()
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("watcher stopped")
			}
		}()
	}

	if conf.Outbox.RelayEnabled {
		dispatcher := docsoutbox.NewEnrichmentDispatcher(
			artifacts.NewFSStore(logEntry),
			indexing.NewIndexer(pool, logEntry),
			routineDocs,
			approvalRepo,
			eventLog,
			logEntry,
		)
		relay, err := outbox.NewRelay(pool, docsoutbox.Table, dispatcher, outbox.RelayOptions{
			PollInterval:    conf.Outbox.RelayPollInterval,
			BatchSize:       conf.Outbox.RelayBatchSize,
			LockTTL:         conf.Outbox.RelayLockTTL,
			MaxAttempts:     conf.Outbox.RelayMaxAttempts,
			SingleActive:    conf.Outbox.RelaySingleActive,
			DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
			Logger:          logEntry.WithField("component", "outbox-relay"),
		})
		if err != nil {
			panic(err)
		}
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("outbox relay stopped")
			}
		}()
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(pool, docsoutbox.Table, outbox.CleanerOptions{
			Enabled:   true,
			Interval:  conf.Outbox.CleanerInterval,
			Retention: conf.Outbox.CleanerRetention,
			Logger:    logEntry.WithField("component", "outbox-cleaner"),
		})
		if err != nil {
			panic(err)
		}
		go func() {
			if err := cleaner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("outbox cleaner stopped")
			}
		}()
	}

	controllerList := []server.Controller{
		controllers.NewApprovalAPIController(approvals, eventLog, logEntry),
	}
	if conf.Prometheus.Enabled {
		controllerList = append(controllerList, metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	srv := server.NewHTTPServer(controllerList)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown failed")
		}
	}()

	logger.Info("listening on " + conf.SocketAddress)
	if err := srv.Start(conf.SocketAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
	conf.Unload()
}
