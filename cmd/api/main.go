package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Momo-444/toitureai-api/internal/config"
	"github.com/Momo-444/toitureai-api/internal/infra/database"
	"github.com/Momo-444/toitureai-api/internal/infra/http/handlers"
	"github.com/Momo-444/toitureai-api/internal/infra/http/middleware"
	"github.com/Momo-444/toitureai-api/internal/infra/integration/docuseal"
	"github.com/Momo-444/toitureai-api/internal/infra/integration/openai"
	"github.com/Momo-444/toitureai-api/internal/infra/integration/storage"
	"github.com/Momo-444/toitureai-api/internal/infra/integration/turnstile"
	"github.com/Momo-444/toitureai-api/internal/infra/mail"
	"github.com/Momo-444/toitureai-api/internal/infra/pdf"
	"github.com/Momo-444/toitureai-api/internal/infra/queue"
	"github.com/Momo-444/toitureai-api/internal/infra/worker"
	"github.com/Momo-444/toitureai-api/internal/log"
	"github.com/Momo-444/toitureai-api/internal/signing"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		log.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Database
	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	leadRepo := database.NewLeadRepository(db)
	devisRepo := database.NewDevisRepository(db)
	reportRepo := database.NewReportRepository(db)
	errorRepo := database.NewErrorLogRepository(db)

	reporter := usecase.NewErrorReporter(errorRepo, middleware.RecordWorkflowError)
	reporter.OnUpstream = middleware.RecordIntegrationError

	// 2. Gateways
	ai := openai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	files := storage.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	pdfs := pdf.NewRenderer(cfg.Tunables.Company)
	signer := signing.NewSigner(cfg.TrackingSecret, cfg.APIBaseURL)

	var captcha usecase.CaptchaVerifier
	if cfg.TurnstileSecret != "" {
		captcha = turnstile.NewClient(cfg.TurnstileSecret)
	}

	templates, err := mail.NewRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}

	// 3. Email delivery: direct SMTP, or through RabbitMQ when a broker is configured
	smtp := mail.NewSender(cfg.SMTP)
	var (
		deliverer  mail.Deliverer = smtp
		brokerConn *amqp091.Connection
	)
	if cfg.AMQPURL != "" {
		broker, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer broker.Close()
		brokerConn = broker.Conn
		deliverer = queue.NewProducer(broker.Ch)

		emailWorker := queue.NewWorker(broker.Ch, smtp)
		go func() {
			if err := emailWorker.Start(ctx, queue.QueueName); err != nil {
				log.Error("email worker stopped", slog.String("error", err.Error()))
			}
		}()
	}
	notifier := mail.NewNotifier(deliverer, templates, cfg)

	loc, err := time.LoadLocation(cfg.Tunables.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", slog.String("timezone", cfg.Tunables.Timezone))
		loc = time.UTC
	}

	// 4. Use cases
	ingestLead := usecase.NewIngestLeadUseCase(leadRepo, ai, notifier, signer, captcha, reporter,
		cfg.HotLeadThreshold, time.Duration(cfg.Tunables.DuplicateWindowMinutes)*time.Minute)
	manageLeads := usecase.NewManageLeadsUseCase(leadRepo, cfg.HotLeadThreshold)
	trackLead := usecase.NewTrackLeadUseCase(leadRepo, signer, notifier, reporter, cfg.HotOpenThreshold)
	generateDevis := usecase.NewGenerateDevisUseCase(leadRepo, devisRepo, ai, pdfs, files, notifier, reporter,
		cfg.Tunables.Pricing)
	manageDevis := usecase.NewManageDevisUseCase(devisRepo)
	processSignature := usecase.NewProcessSignatureUseCase(devisRepo, leadRepo, docuseal.NewClient(cfg.DocuSealAPIKey), pdfs, files,
		notifier, reporter)
	generateReport := usecase.NewGenerateReportUseCase(leadRepo, devisRepo, reportRepo, pdfs, files, notifier,
		reporter, cfg.AdminEmail, loc)

	if cfg.ReportSchedulerEnabled {
		go worker.NewReportScheduler(generateReport, loc).Start(ctx)
	}

	// 5. HTTP
	router := newRouter(cfg, reporter, routes{
		health:   handlers.NewHealthHandler(db, brokerConn, cfg.Env),
		leads:    handlers.NewLeadHandler(ingestLead, manageLeads, handlers.NewRateLimiter(ctx, 10, time.Minute)),
		tracking: handlers.NewTrackingHandler(trackLead, cfg.ClickRedirectURL, cfg.WebsiteURL),
		devis:    handlers.NewDevisHandler(generateDevis, manageDevis),
		docuseal: handlers.NewDocuSealHandler(processSignature),
		rapports: handlers.NewRapportHandler(generateReport),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("env", cfg.Env),
			slog.Bool("amqp", cfg.AMQPURL != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
