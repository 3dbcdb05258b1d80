package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/config"
	"github.com/xavierca1/agency-pipeline/internal/infra/cache"
	"github.com/xavierca1/agency-pipeline/internal/infra/database"
	"github.com/xavierca1/agency-pipeline/internal/infra/http/handlers"
	"github.com/xavierca1/agency-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/agency-pipeline/internal/infra/mail"
	"github.com/xavierca1/agency-pipeline/internal/infra/portal"
	"github.com/xavierca1/agency-pipeline/internal/infra/queue"
	"github.com/xavierca1/agency-pipeline/internal/infra/worker"
	"github.com/xavierca1/agency-pipeline/internal/logging"
	"github.com/xavierca1/agency-pipeline/internal/pipeline"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logging.Init(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	} else {
		log.Warn("REDIS_URL not set, board reads go straight to the database")
	}

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	statusRepo := database.NewStatusRepository(db)
	historyRepo := database.NewHistoryRepository(db)
	clientRepo := database.NewClientRepository(db)
	projectRepo := database.NewProjectRepository(db)

	readCache := cache.NewCache(database.BoardSource{Statuses: statusRepo, Leads: leadRepo}, redisClient, cfg.CacheTTL)

	// 2. Adapters
	metrics := middleware.Recorder{}
	mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
	provisioner := portal.NewProvisioner(
		portal.NewClient(cfg.AuthAdminURL, cfg.AuthServiceKey),
		mailSender,
		cfg.PortalLoginURL,
	)

	// 3. Use cases
	changeStatusUC := usecase.NewChangeLeadStatusUseCase(leadRepo, historyRepo, metrics)
	convertUC := usecase.NewConvertLeadUseCase(leadRepo, clientRepo, projectRepo, historyRepo, provisioner, metrics)
	mutator := pipeline.UseCases{Status: changeStatusUC, Convert: convertUC}

	registry := pipeline.NewRegistry(func(tenantID string) *pipeline.Controller {
		return pipeline.NewController(tenantID, readCache, mutator,
			pipeline.WithInvalidator(readCache),
			pipeline.WithRecorder(metrics),
			pipeline.WithLocation(cfg.BoardTimezone),
		)
	}, readCache)

	captureUC := usecase.NewCaptureLeadUseCase(leadRepo, statusRepo, historyRepo, registry)
	updateUC := usecase.NewUpdateLeadUseCase(leadRepo, statusRepo, changeStatusUC, registry)
	deleteUC := usecase.NewDeleteLeadUseCase(leadRepo, registry)
	catalogUC := usecase.NewStatusCatalogUseCase(statusRepo, registry)

	// 4. Change feed: Postgres NOTIFY -> RabbitMQ -> every instance
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.WithError(err).Warn("rabbitmq unavailable, boards only refresh on local writes")
	} else {
		defer rabbitMQ.Close()

		consumer := queue.NewWorker(rabbitMQ.Ch, registry)
		go func() {
			if err := consumer.Start(ctx, rabbitMQ.Queue); err != nil {
				log.WithError(err).Error("lead change consumer stopped")
			}
		}()

		if cfg.ChangeRelayEnabled {
			producer := queue.NewProducer(rabbitMQ.Ch)
			listener, err := database.NewLeadListener(cfg.DatabaseURL, producer.PublishLeadChanged)
			if err != nil {
				log.WithError(err).Warn("lead listener not started")
			} else {
				go listener.Run(ctx)
			}
		}
	}

	go worker.NewBoardResyncWorker(registry, cfg.BoardResyncInterval).Start(ctx)

	// 5. HTTP
	health := handlers.NewHealthHandler(db, nil, nil, version)
	if rabbitMQ != nil {
		health.RabbitMQ = rabbitMQ
	}
	if redisClient != nil {
		health.Redis = readCache
	}
	router := newRouter(routes{
		Board:  handlers.NewBoardHandler(registry, cfg.BoardTimezone),
		Leads:  handlers.NewLeadHandler(captureUC, updateUC, deleteUC),
		Status: handlers.NewStatusHandler(catalogUC),
		Health: health,
	}, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.Port).Info("pipeline api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}
