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

	"github.com/ancsystem/anc-notifier/internal/auth"
	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/directory"
	"github.com/ancsystem/anc-notifier/internal/email"
	"github.com/ancsystem/anc-notifier/internal/handler"
	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/middleware"
	"github.com/ancsystem/anc-notifier/internal/notify"
	"github.com/ancsystem/anc-notifier/internal/repository"
	"github.com/ancsystem/anc-notifier/internal/router"
	"github.com/ancsystem/anc-notifier/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", handler.Version).Msg("starting ANC notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	checks := map[string]handler.HealthChecker{
		"postgres": db,
		"redis":    rdb,
	}

	// User directory
	var users directory.UserStore
	switch cfg.Directory.Backend {
	case "mongo":
		mdb, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		defer mdb.Close(context.Background())
		checks["mongo"] = mdb
		users = repository.NewMongoUserRepository(mdb, cfg.Directory.Collection)
		log.Info().Str("collection", cfg.Directory.Collection).Msg("user directory on MongoDB")
	case "postgres", "":
		users = repository.NewUserRepository(db)
		log.Info().Msg("user directory on PostgreSQL")
	default:
		log.Fatal().Str("backend", cfg.Directory.Backend).Msg("unknown directory backend")
	}
	dir := directory.New(users)

	// Mail transport; missing credentials only warn
	mailer := email.NewMailer(email.NewSender(ctx, cfg.Mail, log), cfg.Mail.Account, cfg.Mail.SenderName)

	formatter, err := notify.NewFormatter(cfg.Notify.Timezone, cfg.Notify.DateLayout, cfg.Mail.SenderName)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to UTC for appointment dates")
		formatter, _ = notify.NewFormatter("", cfg.Notify.DateLayout, cfg.Mail.SenderName)
	}

	notifier := notify.NewAppointmentNotifier(dir, mailer, formatter, log)
	emailSvc := notify.NewEmailService(mailer, log)

	// Appointment trigger
	dispatcher := trigger.NewDispatcher(notifier, repository.NewAppointmentRepository(db), rdb, trigger.DispatcherConfig{
		HandlerTimeout: cfg.Trigger.HandlerTimeout,
		DedupeTTL:      cfg.Trigger.DedupeTTL,
	}, log)

	var sources []trigger.Source
	for _, name := range cfg.Trigger.Sources {
		switch name {
		case "postgres":
			sources = append(sources, trigger.NewPostgresSource(db, cfg.Trigger.PostgresChannel, log))
		case "redis":
			sources = append(sources, trigger.NewRedisSource(rdb, cfg.Trigger.RedisChannel, log))
		default:
			log.Warn().Str("source", name).Msg("ignoring unknown trigger source")
		}
	}
	if len(sources) == 0 {
		log.Warn().Msg("no trigger source enabled; appointment emails will not be sent")
	}

	triggerDone := make(chan struct{})
	go func() {
		defer close(triggerDone)
		dispatcher.Run(ctx, sources...)
	}()

	// Callable endpoint
	tokenSvc := auth.NewTokenService(cfg.Callable)
	if !tokenSvc.Enabled() {
		log.Warn().Msg("callable.auth_secret is empty; the send-email endpoint accepts unauthenticated calls")
	}

	h := handler.New(checks, emailSvc, log)
	mw := middleware.New(rdb, log, cfg)
	r := router.New(h, mw, cfg, tokenSvc)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	select {
	case <-triggerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("appointment emails still in flight at shutdown")
	}

	log.Info().Msg("server stopped")
}
