package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"congresy/config"
	_ "congresy/docs"
	"congresy/internal/adapters/auth"
	"congresy/internal/adapters/email"
	"congresy/internal/consistency"
	deliveryhttp "congresy/internal/delivery/http"
	"congresy/internal/delivery/http/controllers"
	"congresy/internal/delivery/http/middleware"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
	"congresy/internal/repository/memory"
	"congresy/internal/repository/postgres"
	"congresy/internal/repository/sqlite"
	"congresy/internal/services"
)

// @title Congresy API
// @version 1.0
// @description Conferences, events, enrollment and private messaging kept consistent across aggregates.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.DocumentStore, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DBUrl)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres document store")
		return postgres.NewDocumentRepository(db), closer(db, logger), nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite document store", "path", cfg.SQLitePath)
		return store, closer(store, logger), nil
	default:
		logger.Warn("using in-memory document store, data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}
}

func closer(db io.Closer, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", "err", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	cols := repository.NewCollections(store)
	ix := index.New()
	if err := ix.Rebuild(ctx, cols); err != nil {
		return err
	}
	saga := consistency.NewExecutor(logger, consistency.Options{
		MaxAttempts: cfg.SagaMaxAttempts,
		BaseBackoff: cfg.SagaBaseBackoff,
		MaxBackoff:  cfg.SagaMaxBackoff,
	})

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkip,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	emailService := services.NewEmailService(logger, mailer, email.NewTemplateRenderer())

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	actorService := services.NewActorService(logger, cols, ix, saga, hasher)
	conferenceService := services.NewConferenceService(logger, cols, ix, saga)
	eventService := services.NewEventService(logger, cols, ix, saga)
	enrollmentService := services.NewEnrollmentService(logger, cols, ix, saga)
	messageService := services.NewMessageService(logger, cols, ix, saga, emailService)
	authService := services.NewAuthService(cols, hasher, auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry)
	postService := services.NewPostService(logger, cols, ix, saga)
	repairer := services.NewRepairer(logger, cols, ix, saga)

	repairer.StartLoop(ctx, cfg.RepairInterval)

	router := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Auth:        controllers.NewAuthController(logger, authService, actorService),
		Actors:      controllers.NewActorController(logger, actorService),
		Conferences: controllers.NewConferenceController(logger, conferenceService),
		Events:      controllers.NewEventController(logger, eventService, conferenceService),
		Enrollment:  controllers.NewEnrollmentController(logger, enrollmentService, eventService, conferenceService),
		Messages:    controllers.NewMessageController(logger, messageService),
		Posts:       controllers.NewPostController(logger, postService, actorService),
		Repair:      controllers.NewRepairController(logger, repairer, actorService),
	}, auth.NewJWTVerifier(cfg.JWTSecret), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
