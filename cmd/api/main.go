package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/config"
	emailhandler "github.com/calipso-dynamics/notification-api/internal/handler/email"
	notificationhandler "github.com/calipso-dynamics/notification-api/internal/handler/notification"
	operationhandler "github.com/calipso-dynamics/notification-api/internal/handler/operation"
	pdfhandler "github.com/calipso-dynamics/notification-api/internal/handler/pdf"
	"github.com/calipso-dynamics/notification-api/internal/repository/sqlite"
	"github.com/calipso-dynamics/notification-api/internal/router"
	"github.com/calipso-dynamics/notification-api/internal/service/channel"
	"github.com/calipso-dynamics/notification-api/internal/service/email"
	"github.com/calipso-dynamics/notification-api/internal/service/notification"
	"github.com/calipso-dynamics/notification-api/internal/service/operation"
	"github.com/calipso-dynamics/notification-api/internal/service/pdf"
	"github.com/calipso-dynamics/notification-api/internal/service/whatsapp"
	"github.com/calipso-dynamics/notification-api/pkg/logger"
	"github.com/calipso-dynamics/notification-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level)

	if cfg.Server.APIKey == "" {
		log.Warn().Msg("API_KEY is not set, all /api requests will be rejected")
	}

	db, err := sqlite.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer db.Close()

	if err := sqlite.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	m := metrics.NewMetrics("notification_api")

	operationRepo := sqlite.NewOperationRepository(db)
	channelRepo := sqlite.NewChannelRepository(db)
	emailRepo := sqlite.NewEmailRepository(db)

	operationSvc := operation.NewService(operationRepo)
	channelSvc := channel.NewService(channelRepo)
	emailSvc := email.NewService(emailRepo, operationSvc)
	whatsappSvc := whatsapp.NewService(whatsapp.Config{
		BaseURL:   cfg.WhatsApp.BaseURL,
		SessionID: cfg.WhatsApp.SessionID,
	}, nil)

	pdfSvc, err := pdf.NewService(pdf.Config{
		BinaryPath: cfg.PDF.BinaryPath,
		OutputDir:  cfg.PDF.OutputDir,
	}, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pdf renderer")
	}
	defer pdfSvc.Close()

	dispatcher := notification.NewService(operationSvc, channelSvc, emailSvc, whatsappSvc, pdfSvc, m)

	engine := router.New(
		router.Config{
			APIKey:         cfg.Server.APIKey,
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		},
		m,
		pdfhandler.NewHandler(pdfSvc),
		operationhandler.NewHandler(operationSvc),
		emailhandler.NewHandler(emailSvc, operationSvc, pdfSvc),
		notificationhandler.NewHandler(operationSvc, dispatcher),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := dispatcher.Drain(ctx); err != nil {
		log.Warn().Err(err).Msg("async dispatches still running at shutdown")
	}

	log.Info().Msg("server stopped")
}
