package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/valueminer/valueminer/internal/api"
	"github.com/valueminer/valueminer/internal/api/handler"
	mw "github.com/valueminer/valueminer/internal/api/middleware"
	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/internal/service"
	"github.com/valueminer/valueminer/internal/worker"
	"github.com/valueminer/valueminer/pkg/crypto"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/resend"
	"github.com/valueminer/valueminer/pkg/searchapi"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Path to an optional dotenv file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("valueminer %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting valueminer",
		"version", Version,
		"build_time", BuildTime,
	)

	// A missing .env file is normal in containers.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := repository.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("store ready", "driver", cfg.Store.Driver)

	// Initialize clients
	transcripts := searchapi.NewClient(cfg.SearchAPI)
	summarizer := openai.NewClient(cfg.OpenAI)
	mailer := resend.NewClient(cfg.Resend)
	verifier := auth.NewSupabaseVerifier(cfg.Supabase.AuthURL(), cfg.Supabase.AuthKey())

	sealer, err := crypto.NewSealer(cfg.Session.Secret)
	if err != nil {
		logger.Error("failed to create session sealer", "error", err)
		os.Exit(1)
	}

	if !transcripts.Configured() {
		logger.Warn("SEARCHAPI_KEY not set, transcript requests will fail")
	}
	if !mailer.Configured() {
		logger.Warn("RESEND_API_KEY or REPORT_FROM_EMAIL not set, reports will not be sent")
	}

	// Initialize services
	folderSvc := service.NewFolderService(store.Folders(), logger)
	clipSvc := service.NewClipService(store.Clips(), folderSvc, transcripts, summarizer, logger)
	intakeSvc := service.NewIntakeService(
		store.Intakes(),
		store.Clips(),
		folderSvc,
		transcripts,
		summarizer,
		cfg.Intake,
		logger,
	)
	tokenSvc := service.NewTokenService(store.Tokens(), logger)
	reportSvc := service.NewReportService(
		store.Reports(),
		store.Users(),
		store.Clips(),
		mailer,
		cfg.Report.TopClips,
		logger,
	)
	sessionSvc := service.NewSessionService(verifier, sealer, cfg.Session, logger)
	shareSvc := service.NewShareService(cfg.Share, logger)
	shortcutSvc := service.NewShortcutService(cfg.Shortcut, logger)

	// Initialize handlers
	handlers := api.Handlers{
		Health:  handler.NewHealthHandler(store, logger),
		Mine:    handler.NewMineHandler(clipSvc, logger),
		Intake:  handler.NewIntakeHandler(intakeSvc, logger),
		Account: handler.NewAccountHandler(tokenSvc, sessionSvc, logger),
		Report:  handler.NewReportHandler(reportSvc, logger),
		Clips:   handler.NewClipHandler(clipSvc, folderSvc, logger),
		Share:   handler.NewShareHandler(shareSvc, shortcutSvc, logger),
	}

	// Setup router
	router := api.NewRouter(handlers, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CronSecret:     cfg.Report.CronSecret,
		Verifier:       verifier,
		Users:          store.Users(),
		Tokens:         tokenSvc,
		RateLimiter:    mw.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
	})

	// Start background workers
	var pool *worker.Pool
	if cfg.Intake.Async {
		pool = worker.NewPool(
			worker.Config{
				Workers:        cfg.Intake.Workers,
				PollInterval:   cfg.Intake.PollInterval,
				RequeueOnStart: cfg.Intake.RequeueOnStart,
			},
			store.Intakes(),
			intakeSvc,
			logger,
		)
		pool.Start()
	}

	var scheduler *worker.Scheduler
	if cfg.Report.SchedulerEnabled {
		scheduler = worker.NewScheduler(cfg.Report.TickInterval, reportSvc, logger)
		scheduler.Start()
	}

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if scheduler != nil {
		if err := scheduler.Stop(10 * time.Second); err != nil {
			logger.Error("report scheduler shutdown error", "error", err)
		}
	}

	// Stop workers (allow in-flight intakes to complete)
	if pool != nil {
		if err := pool.Stop(25 * time.Second); err != nil {
			logger.Error("worker pool shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
