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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/rpd-backend/internal/config"
	"github.com/AnshRaj112/rpd-backend/internal/database"
	"github.com/AnshRaj112/rpd-backend/internal/handlers"
	"github.com/AnshRaj112/rpd-backend/internal/identity"
	"github.com/AnshRaj112/rpd-backend/internal/logging"
	"github.com/AnshRaj112/rpd-backend/internal/middleware"
	"github.com/AnshRaj112/rpd-backend/internal/routes"
	"github.com/AnshRaj112/rpd-backend/internal/services"
)

const (
	revocationCacheTTL = 10 * time.Minute
	shutdownTimeout    = 15 * time.Second
)

func main() {
	// Load env
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		log.Info("No .env file found")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "your-secret-key-change-in-production" {
		log.Warn("⚠️  JWT_SECRET is not set; using the development default")
	}

	// Connect to PostgreSQL
	log.Info("Connecting to PostgreSQL...", "uri", database.MaskURI(cfg.PostgresURI))
	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer database.DisconnectPostgres(pg)
	log.Info("✅ PostgreSQL connected, identity tables ready")

	// Connect to Redis
	log.Info("Connecting to Redis...", "uri", database.MaskURI(cfg.RedisURI))
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		return err
	}
	defer database.DisconnectRedis(rdb)
	log.Info("✅ Redis connected")

	// Connect to MongoDB
	log.Info("Connecting to MongoDB...", "uri", database.MaskURI(cfg.MongoURI))
	mongoClient, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Error("Failed to connect to MongoDB. Check that the server is reachable and the credentials are correct.")
		return err
	}
	defer database.Disconnect(mongoClient)
	log.Info("✅ MongoDB connected", "database", db.Name())

	// Identity
	signer := identity.NewTokenSigner(cfg.JWTSecret, cfg.TokenIssuer, cfg.TokenAudience, cfg.TokenTTL)
	idp := identity.NewService(
		identity.NewPostgresAccounts(pg),
		identity.NewRevocationCache(rdb, revocationCacheTTL),
		signer,
		log,
	)

	// Stores
	records := services.NewRecordStore(db.Collection(cfg.RPDCollection), services.NewRecordIDGenerator(cfg.RPDIDStrategy), cfg.RPDScope)
	profiles := services.NewProfileStore(db.Collection(cfg.UsersCollection))
	outbox := services.NewProfileOutbox(rdb, profiles, log)
	accounts := services.NewAccountService(idp, profiles, outbox, log)

	go outbox.Run(ctx, cfg.ProfileRetryInterval)
	log.Info("✅ Profile retry worker started", "interval", cfg.ProfileRetryInterval.String())

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(ctx, cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Info("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RedisRateLimit(rdb, middleware.RateLimitMaxRequests, middleware.RateLimitWindow, log))
	}

	routes.SetupRoutes(r, routes.Deps{
		Adapter:      handlers.NewAdapter(log),
		RPD:          handlers.NewRPDHandler(records),
		Users:        handlers.NewUsersHandler(accounts),
		Auth:         handlers.NewAuthHandler(idp),
		RequireToken: middleware.RequireToken(idp, cfg.SessionCookieName, log),
	})

	log.Info("📋 Registered routes",
		"public", "GET /health, POST /auth/signin",
		"protected", "GET|POST|DELETE /rpd, POST|DELETE /users, DELETE /signout",
		"rpd_scope", cfg.RPDScope,
		"rpd_id_strategy", cfg.RPDIDStrategy,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 RPD backend running", "port", cfg.Port, "env", cfg.Environment)
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

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
