package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blogpp/app"
	"blogpp/common"
	"blogpp/config"
	"blogpp/database"
	"blogpp/email"
	"blogpp/notify"
)

func main() {
	cfg, err := config.Setup()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := common.NewLogger(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := common.ConnectDb(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	var sender email.Sender = email.NopSender{}
	if cfg.SMTP.Host != "" {
		sender = email.NewEmailService(cfg.SMTP)
	} else {
		logger.Warn("SMTP host not set, mail will be discarded")
	}

	a := app.New(db, sender, app.Options{
		Domain:        cfg.Domain,
		SessionSecret: cfg.SessionSecret,
		SessionSecure: cfg.SessionSecure,
		CORSOrigins:   cfg.CORSOrigins,
		RateLimit:     cfg.RateLimit,
		Mail: notify.QueueOpts{
			Workers: cfg.Mail.Workers,
			Size:    cfg.Mail.Size,
			Timeout: cfg.Mail.Timeout,
		},
		RenderCacheTTL:   cfg.RenderCacheTTL,
		BackofficeEmails: cfg.BackofficeEmails,
	}, logger)
	a.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.Port), zap.String("domain", cfg.Domain))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	a.Close()
}
