package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/saf-slovakia/accountancy/api"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/config"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/saf-slovakia/accountancy/internal/notify"
	"github.com/saf-slovakia/accountancy/internal/scheduler"
	"github.com/saf-slovakia/accountancy/internal/storage"
	"github.com/saf-slovakia/accountancy/logging"
)

const SHUTDOWN_TIMEOUT = 15 * time.Second

// Storage is everything the services need from a backend.
type Storage interface {
	auth.Storage
	finances.Storage
	accountancy.Storage
	api.Pinger
}

func openStorage(ctx context.Context, cfg config.Config) (Storage, func(), error) {
	if cfg.InMemory() {
		logging.Logger.Warn("DB_DRIVER=inmemory, data will be lost on restart")
		return storage.NewInMemoryStorage(), func() {}, nil
	}

	db, dialect, err := storage.Init(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s := storage.NewSQLStorage(db, dialect)
	return s, func() { s.Close() }, nil
}

func newNotifier(cfg config.Config) (*notify.Notifier, error) {
	var sender notify.Sender = notify.LogSender{}
	if cfg.Notify.SMTP.Host != "" {
		sender = notify.NewSMTPSender(cfg.Notify.SMTP)
	} else {
		logging.Logger.Warn("SMTP_HOST not set, emails are only logged")
	}
	return notify.New(cfg.Notify, sender)
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.LogLevel, cfg.AppEnv, cfg.LogDir); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logging.Logger.Info("application starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageInstance, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logging.Logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer closeStorage()

	notifier, err := newNotifier(cfg)
	if err != nil {
		logging.Logger.Errorf("failed to initialize notifier: %v", err)
		os.Exit(1)
	}

	authService := auth.NewService(storageInstance)
	financeService := finances.NewService(storageInstance, cfg.Sections)
	books := accountancy.NewBookkeeper(storageInstance, notifier, accountancy.Options{
		Sections:       cfg.Sections,
		MediaRoot:      cfg.MediaRoot,
		MaxInvoiceSize: cfg.MaxInvoiceSize,
	})

	jobs, err := scheduler.New(books, scheduler.Config{
		ReminderSchedule: cfg.ReminderSchedule,
		ArchiveSchedule:  cfg.ArchiveSchedule,
	})
	if err != nil {
		logging.Logger.Errorf("failed to initialize scheduler: %v", err)
		os.Exit(1)
	}
	jobs.Start()
	defer jobs.Stop()

	corsConf := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", api.TRACE_HEADER},
		ExposedHeaders:   []string{api.TRACE_HEADER, "Content-Disposition"},
		AllowCredentials: true,
	})

	handler := api.NewApi(authService, books, financeService, storageInstance).Routes()
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsConf.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Starting server on port: %s (storage: %s)", cfg.Port, storageInstance.GetStorageType())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Errorf("failed to start server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("failed to shut down server: %v", err)
	}
}
