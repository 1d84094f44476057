package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authsvc "rentline/internal/app/services/auth"
	chatsvc "rentline/internal/app/services/chat"
	listingssvc "rentline/internal/app/services/listings"
	planssvc "rentline/internal/app/services/plans"
	domainchat "rentline/internal/domain/chat"
	domainlisting "rentline/internal/domain/listing"
	domainplan "rentline/internal/domain/plan"
	domainuser "rentline/internal/domain/user"
	"rentline/internal/infra/broker/kafka"
	"rentline/internal/infra/config"
	mongodb "rentline/internal/infra/db/mongo"
	ginserver "rentline/internal/infra/http/gin"
	"rentline/internal/infra/http/ws"
	"rentline/internal/infra/obs"
	"rentline/internal/infra/security"
	"rentline/internal/infra/storage/memory"
	"rentline/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, cleanup, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	ready    func() error
}

type repositories struct {
	users    domainuser.Repository
	listings domainlisting.Repository
	chat     domainchat.Repository
	plans    domainplan.Repository
	refresh  authsvc.RefreshTokenStore
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, func(), error) {
	cleanups := make([]func(), 0, 2)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	repos, ready, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		return application{}, cleanup, err
	}

	authService := &authsvc.Service{
		Users:           repos.users,
		Passwords:       security.BcryptHasher{},
		Access:          security.AccessTokenSigner{Secret: []byte(cfg.JWTAccessSecret), TTL: cfg.AccessTokenTTL},
		Refresh:         security.RandomTokenGenerator{},
		RefreshStore:    repos.refresh,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Logger:          logger,
	}

	var events chatsvc.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, cleanup, err
		}
		cleanups = append(cleanups, func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", "error", err)
			}
		})
		events = producer
		startEventAudit(ctx, cfg, logger)
	} else {
		logger.Info("kafka disabled, chat events are not published")
	}

	chatService := &chatsvc.Service{
		Conversations: repos.chat,
		Listings:      repos.listings,
		Users:         repos.users,
		Events:        events,
		TopicPrefix:   cfg.KafkaTopicPrefix,
		Logger:        logger,
	}
	listingService := &listingssvc.Service{
		Listings: repos.listings,
		Plans:    repos.plans,
		Logger:   logger,
	}
	planService := &planssvc.Service{
		Plans:    repos.plans,
		Listings: repos.listings,
		Logger:   logger,
	}

	var uploads ginserver.ImageUploader
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			return application{}, cleanup, err
		}
		uploads = client
	} else {
		logger.Info("s3 disabled, image uploads are rejected")
		uploads = s3.NoopUploader{}
	}

	hub := ws.NewHub(logger)
	authMW := ginserver.AuthMiddleware{Service: authService, Logger: logger}

	handlers := ginserver.Handlers{
		Auth: ginserver.AuthHandler{
			Service:      authService,
			RefreshTTL:   cfg.RefreshTokenTTL,
			CookieSecure: cfg.CookieSecure,
			Logger:       logger,
		},
		Listing: ginserver.ListingHandler{
			Service: listingService,
			Uploads: uploads,
			Logger:  logger,
		},
		Chat: ginserver.ChatHandler{Service: chatService, Logger: logger},
		LiveChat: ws.Handler{
			Hub:    hub,
			Auth:   authService,
			Chat:   chatService,
			Logger: logger,
		},
		Plan:           ginserver.PlanHandler{Service: planService, Logger: logger},
		Stats:          ginserver.StatsHandler{Users: repos.users, Listings: repos.listings, Logger: logger},
		AuthMiddleware: authMW.Handle,
	}

	return application{handlers: handlers, ready: ready}, cleanup, nil
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories, func() error, error) {
	if cfg.MongoURI == "" {
		logger.Info("mongo disabled, using in-memory stores")
		return repositories{
			users:    memory.NewUserRepository(),
			listings: memory.NewListingRepository(),
			chat:     memory.NewChatRepository(),
			plans:    memory.NewPlanRepository(),
			refresh:  memory.NewRefreshTokenStore(),
		}, func() error { return nil }, nil
	}

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return repositories{}, nil, err
	}
	users := mongodb.NewUserRepository(client.DB)
	chatRepo := mongodb.NewChatRepository(client.DB)
	refresh := mongodb.NewRefreshTokenStore(client.DB)
	if err := users.EnsureIndexes(ctx); err != nil {
		return repositories{}, nil, err
	}
	if err := chatRepo.EnsureIndexes(ctx); err != nil {
		return repositories{}, nil, err
	}
	if err := refresh.EnsureIndexes(ctx); err != nil {
		return repositories{}, nil, err
	}
	logger.Info("mongo connected", "database", cfg.MongoDB)
	return repositories{
		users:    users,
		listings: mongodb.NewListingRepository(client.DB),
		chat:     chatRepo,
		plans:    mongodb.NewPlanRepository(client.DB),
		refresh:  refresh,
	}, func() error { return client.Ping(context.Background()) }, nil
}

// startEventAudit runs the in-process consumer that logs delivered chat
// events. Failures are non-fatal: the audit trail is best effort.
func startEventAudit(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "rentline-audit", nil, kafka.MessageSentLogger{Logger: logger})
	if err != nil {
		logger.Warn("event audit disabled", "error", err)
		return
	}
	topic := cfg.KafkaTopicPrefix + "chat.message.sent"
	go func() {
		if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("event audit stopped", "error", err)
		}
		if err := consumer.Close(); err != nil {
			logger.Warn("event audit close failed", "error", err)
		}
	}()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
