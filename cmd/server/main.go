// Command server runs the portfolio API.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/folioapp/api/internal/app"
	"github.com/folioapp/api/internal/config"
	infrahttp "github.com/folioapp/api/internal/infra/http"
	"github.com/folioapp/api/internal/infra/http/handler"
	"github.com/folioapp/api/internal/infra/http/routes"
	"github.com/folioapp/api/internal/infra/llm"
	"github.com/folioapp/api/internal/infra/postgres"
	"github.com/folioapp/api/internal/infra/redis"
	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/auth"
	"github.com/folioapp/api/pkg/logger"
	"github.com/folioapp/api/pkg/validator"
)

// version is set at build time with -ldflags.
var version = "dev"

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if err := cfg.Validate(log); err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	// Config violations already failed Validate in production; outside it
	// the server degrades instead of dying so the frontend can be worked
	// on without every secret in place.
	verifier, err := auth.NewVerifier(cfg.Auth.PublicKey)
	if err != nil {
		if cfg.IsProduction() {
			return err
		}
		log.Warn("auth public key unusable, identity verification disabled", "error", err.Error())
		verifier = nil
	}

	// Per-policy limiter: redis when configured, with the in-process
	// limiter taking over if redis is down. Without redis the in-process
	// limiter carries the load alone.
	policies := ratelimit.DefaultPolicies()
	memory := ratelimit.NewMemoryLimiter()

	var limiter ratelimit.Limiter = memory
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.New(&cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, using in-process rate limiting", "error", err)
		} else {
			redisLimiter, err := redis.NewRateLimiter(redisClient, cfg.App.Name, log)
			if err != nil {
				return err
			}
			limiter = ratelimit.NewFailoverLimiter(redisLimiter, memory, log)
		}
	}

	var db *sql.DB
	var contactRepo app.ContactRepository
	var submissions handler.SubmissionLister
	if cfg.Database.URL != "" {
		db, err = postgres.Open(&cfg.Database, log)
		if err != nil {
			return err
		}
		repo := postgres.NewContactRepository(db)
		contactRepo = repo
		submissions = repo
	}

	// The chat backend is optional in every environment: without
	// credentials the chat endpoint errors while everything else serves.
	provider, err := llm.NewProvider(&cfg.LLM)
	if err != nil {
		log.Warn("llm provider not configured, chat disabled", "error", err.Error())
		provider = llm.Disabled(err)
	}
	log.Info("llm provider configured", "provider", provider.Name(), "model", provider.Model())

	chatService := app.NewChatService(provider, cfg.LLM.MaxTokens, log)
	contactService := app.NewContactService(contactRepo, log)
	v := validator.New()

	checks := map[string]handler.Pinger{}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	if db != nil {
		checks["postgres"] = dbPinger{db}
	}

	server := infrahttp.NewServer(cfg, verifier, log)
	routes.Register(server.Router(), routes.Deps{
		Health:   handler.NewHealthHandler(version, checks),
		Chat:     handler.NewChatHandler(chatService, v, log),
		Contact:  handler.NewContactHandler(contactService, v, log),
		Admin:    handler.NewAdminHandler(policies, memory, submissions, log),
		Limiter:  limiter,
		Policies: policies,
		Logger:   log,
	})

	if redisClient != nil {
		server.OnShutdown(func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close failed", "error", err)
			}
		})
	}
	if db != nil {
		server.OnShutdown(func() {
			if err := db.Close(); err != nil {
				log.Warn("database close failed", "error", err)
			}
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

type dbPinger struct{ db *sql.DB }

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
