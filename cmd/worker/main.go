package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/analytics"
	"leadflow_backend/internal/crmsync"
	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/notify"
	"leadflow_backend/internal/response"
	"leadflow_backend/internal/schedule"
	"leadflow_backend/internal/scoring"
	"leadflow_backend/internal/sequence"
	"leadflow_backend/internal/sla"
	"leadflow_backend/internal/webhookin"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	dispatchClient, err := dispatch.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch client", "error", err)
		panic("failed to initialize dispatch client: " + err.Error())
	}
	defer func() { _ = dispatchClient.Close() }()

	server, err := dispatch.NewServer(cfg, dispatchClient, log)
	if err != nil {
		log.Error("failed to initialize dispatch server", "error", err)
		panic("failed to initialize dispatch server: " + err.Error())
	}

	// ========================================================================
	// Transports
	// ========================================================================

	mailSender := notify.NewMailSender(cfg, log)
	smsClient := notify.NewSMSClient(cfg, log)
	chatClient := notify.NewChatClient(cfg, log)
	crmClient := crmsync.NewClient(cfg, log)

	// ========================================================================
	// Domain Services (Composition Root)
	// ========================================================================

	leadsRepo := leads.NewRepository(pool)
	scoringRepo := scoring.NewRepository(pool)

	sequenceService := sequence.NewService(sequence.NewRepository(pool), leadsRepo, dispatchClient, mailSender, log)

	notifyService := notify.NewService(notify.NewRepository(pool), notify.Transports{
		Email: mailSender,
		Chat:  chatClient,
		SMS:   smsClient,
	}, dispatchClient, cfg, log)

	leadsService := leads.NewService(leadsRepo, scoringRepo, dispatchClient, sequenceService, notifyService, cfg, log)

	responseService := response.NewService(leadsRepo, sequenceService, mailSender, smsClient, dispatchClient, cfg.GetScheduleLocation(), log)
	slaService := sla.NewService(sla.NewRepository(pool), dispatchClient, cfg, log)
	webhookService := webhookin.NewService(webhookin.NewRepository(pool), leadsService, leadsRepo, sequenceService, cfg, log)
	analyticsRepo := analytics.NewRepository(pool)

	// ========================================================================
	// Job Handlers
	// ========================================================================

	response.NewWorker(responseService).Register(server)
	sequence.NewWorker(sequenceService).Register(server)
	notify.NewWorker(notifyService, leadsRepo).Register(server)
	sla.NewWorker(slaService).Register(server)
	webhookin.NewWorker(webhookService).Register(server)
	crmsync.NewWorker(crmClient, leadsRepo, log).Register(server)
	analytics.NewWorker(analyticsRepo, cfg, cfg, log).Register(server)

	// ========================================================================
	// Recurring Schedule
	// ========================================================================

	scheduler, err := schedule.New(cfg, cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler", "error", err)
		panic("failed to initialize scheduler: " + err.Error())
	}

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- scheduler.Run()
	}()
	defer scheduler.Shutdown()

	go func() {
		if err := <-schedErr; err != nil {
			log.Error("scheduler error", "error", err)
			stop()
		}
	}()

	if err := server.Run(ctx); err != nil {
		log.Error("dispatch server error", "error", err)
		panic("dispatch server error: " + err.Error())
	}
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
