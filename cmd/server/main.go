// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/tessera-social/tessera/auth"
	authHandlers "github.com/tessera-social/tessera/auth/handlers"
	authServices "github.com/tessera-social/tessera/auth/services"
	"github.com/tessera-social/tessera/comments"
	commentHandlers "github.com/tessera-social/tessera/comments/handlers"
	commentRepository "github.com/tessera-social/tessera/comments/repository"
	commentServices "github.com/tessera-social/tessera/comments/services"
	"github.com/tessera-social/tessera/counters"
	"github.com/tessera-social/tessera/internal/auth/tokens"
	"github.com/tessera-social/tessera/internal/database/migrations"
	"github.com/tessera-social/tessera/internal/database/postgres"
	"github.com/tessera-social/tessera/internal/middleware/authjwt"
	"github.com/tessera-social/tessera/internal/middleware/requestid"
	"github.com/tessera-social/tessera/internal/pkg/log"
	"github.com/tessera-social/tessera/internal/platform/config"
	"github.com/tessera-social/tessera/internal/platform/email"
	"github.com/tessera-social/tessera/notifications"
	notificationHandlers "github.com/tessera-social/tessera/notifications/handlers"
	notificationRepository "github.com/tessera-social/tessera/notifications/repository"
	notificationServices "github.com/tessera-social/tessera/notifications/services"
	"github.com/tessera-social/tessera/posts"
	postHandlers "github.com/tessera-social/tessera/posts/handlers"
	postRepository "github.com/tessera-social/tessera/posts/repository"
	postServices "github.com/tessera-social/tessera/posts/services"
	"github.com/tessera-social/tessera/reactions"
	reactionHandlers "github.com/tessera-social/tessera/reactions/handlers"
	reactionRepository "github.com/tessera-social/tessera/reactions/repository"
	reactionServices "github.com/tessera-social/tessera/reactions/services"
	"github.com/tessera-social/tessera/realtime/broker"
	"github.com/tessera-social/tessera/realtime/fanout"
	"github.com/tessera-social/tessera/realtime/hub"
	tagRepository "github.com/tessera-social/tessera/tags/repository"
	userRepository "github.com/tessera-social/tessera/users/repository"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Error("failed to load config: %v", err)
		os.Exit(1)
	}
	log.SetDebug(cfg.Server.Debug)

	ctx := context.Background()

	// Database
	pgClient, err := postgres.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to postgres: %v", err)
		os.Exit(1)
	}
	defer pgClient.Close()

	if err := migrations.Up(pgClient.DB()); err != nil {
		log.Error("failed to run migrations: %v", err)
		os.Exit(1)
	}

	txManager := postgres.NewTxManager(pgClient, cfg.Realtime.CommitHookTimeout)
	defer txManager.Close()

	// Repositories
	userRepo := userRepository.NewPostgresUserRepository(pgClient)
	postRepo := postRepository.NewPostgresPostRepository(pgClient)
	commentRepo := commentRepository.NewPostgresCommentRepository(pgClient)
	reactionRepo := reactionRepository.NewPostgresReactionRepository(pgClient)
	notifRepo := notificationRepository.NewPostgresNotificationRepository(pgClient)
	tagRepo := tagRepository.NewPostgresTagRepository(pgClient)

	// Auth
	tokenService, err := tokens.NewService(
		cfg.JWT.PrivateKey, cfg.JWT.PublicKey,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Error("failed to initialize token service: %v", err)
		os.Exit(1)
	}

	var sender email.Sender = email.LogSender{}
	if cfg.Email.SMTPHost != "" {
		smtpSender, err := email.NewSMTPSender(
			cfg.Email.SMTPHost, fmt.Sprintf("%d", cfg.Email.SMTPPort),
			cfg.Email.SMTPUser, cfg.Email.SMTPPass)
		if err != nil {
			log.Warn("SMTP sender unavailable, falling back to log sender: %v", err)
		} else {
			sender = smtpSender
		}
	}
	mailer := email.NewMailer(sender, cfg.Email, cfg.Server.WebDomain)

	// Services
	authService := authServices.NewAuthService(userRepo, tokenService, mailer, txManager, cfg.Auth.ResetTokenTTL)
	postService := postServices.NewPostService(postRepo, commentRepo, reactionRepo, notifRepo, tagRepo, userRepo, txManager)
	commentService := commentServices.NewCommentService(commentRepo, postRepo, reactionRepo, notifRepo, tagRepo, txManager)
	reactionService := reactionServices.NewReactionService(reactionRepo, postRepo, commentRepo, notifRepo, tagRepo, txManager)
	notificationService := notificationServices.NewNotificationService(notifRepo, txManager)

	// Realtime fabric
	var rtBroker broker.Broker
	if cfg.Broker.RedisURL != "" {
		redisBroker, err := broker.NewRedis(
			cfg.Broker.RedisURL, cfg.Broker.ChannelPrefix,
			cfg.Realtime.SubscriptionQueueSize, cfg.Broker.PublishTimeout)
		if err != nil {
			log.Error("failed to connect broker backplane: %v", err)
			os.Exit(1)
		}
		rtBroker = redisBroker
		log.Info("broker: redis backplane")
	} else {
		rtBroker = broker.NewMemory(cfg.Realtime.SubscriptionQueueSize)
		log.Info("broker: in-process (single instance only)")
	}
	defer rtBroker.Close()

	sessionHub := hub.New(rtBroker, tokenService, notificationService, cfg.Realtime)

	// Commit hooks: notifications derive first so their events reach the
	// fan-out through the same dispatcher, then the fan-out publishes.
	engine := notificationServices.NewEngine(notifRepo, userRepo, txManager)
	txManager.RegisterCommitHook(engine.HandleEvent)
	txManager.RegisterCommitHook(fanout.New(rtBroker).HandleEvent)

	// HTTP surface
	app := fiber.New(fiber.Config{
		AppName: "tessera",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	requireAuth := authjwt.New(authjwt.Config{Tokens: tokenService})
	optionalAuth := authjwt.Optional(authjwt.Config{Tokens: tokenService})

	api := app.Group(cfg.Server.BaseRoute + "/v1")
	auth.RegisterRoutes(api, authHandlers.NewAuthHandler(authService), requireAuth)
	posts.RegisterRoutes(api, postHandlers.NewPostHandler(postService), requireAuth, optionalAuth)
	comments.RegisterRoutes(api, commentHandlers.NewCommentHandler(commentService), requireAuth, optionalAuth)
	reactions.RegisterRoutes(api, reactionHandlers.NewReactionHandler(reactionService), requireAuth)
	notifications.RegisterRoutes(api, notificationHandlers.NewNotificationHandler(notificationService), requireAuth)
	api.Get("/realtime", sessionHub.UpgradeGate(), sessionHub.Handler())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := pgClient.HealthCheck(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Background counter verifier
	verifierCtx, stopVerifier := context.WithCancel(ctx)
	defer stopVerifier()
	go counters.NewVerifier(pgClient.DB(), cfg.Counters.VerifyInterval).Run(verifierCtx)

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()
	log.Info("tessera listening on %s:%d", cfg.Server.Host, cfg.Server.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error("server stopped: %v", err)
		os.Exit(1)
	case sig := <-sigCh:
		log.Info("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sessionHub.Close(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("shutdown: %v", err)
	}
	txManager.Flush()
}
