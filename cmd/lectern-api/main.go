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

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/handlers"
	"github.com/dimitrije/lectern-api/internal/logger"
	"github.com/dimitrije/lectern-api/internal/metrics"
	authmw "github.com/dimitrije/lectern-api/internal/middleware"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/dimitrije/lectern-api/internal/storage"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Production: cfg.IsProduction(),
		File:       cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logr.Fatal("failed to run migrations", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logr.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logr.Warn("redis unreachable, login rate limit fails open", zap.Error(err))
		}
	} else {
		logr.Info("REDIS_URL not set, login rate limit disabled")
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to initialize storage", zap.Error(err))
	}

	hub := sse.NewHub()
	go hub.Run(ctx)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	catalogService := services.NewCatalogService(db)
	videoService := services.NewVideoService(db, store, hub, logr.Named("videos"))
	documentService := services.NewDocumentService(db, store, catalogService, hub, logr.Named("documents"))
	statsService := services.NewStatsService(db)
	emailService := services.NewEmailService(cfg.SMTP)
	resolver := services.NewIdentityResolver(userService, cfg.DemoUsers, cfg.AdminEmails, logr.Named("identity"))

	if added, err := catalogService.SeedClasses(ctx); err != nil {
		logr.Fatal("failed to seed classes", zap.Error(err))
	} else if added > 0 {
		logr.Info("seeded classes", zap.Int("added", added))
	}

	authHandler := handlers.NewAuthHandler(cfg, resolver, userService, tokenService, jwtService, logr.Named("auth"))
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(cfg, userService, videoService, statsService, emailService, logr.Named("admin"))
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	videoHandler := handlers.NewVideoHandler(videoService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	sseHandler := handlers.NewSSEHandler(hub, catalogService)

	go authHandler.CleanupLoop(ctx)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	loginLimiter := authmw.NewRateLimiter(rdb, "login", authmw.PerPeriod(cfg.LoginRateLimit, cfg.LoginRatePeriod), logr.Named("ratelimit"))

	login := api.Group("/auth")
	login.Use(middleware.BodyParser())
	login.Use(loginLimiter.Handler())
	login.Post("/login", authHandler.Login)

	auth := api.Group("/auth")
	auth.Use(middleware.BodyParser())
	auth.Get("/:provider/consent", authHandler.GetConsentURL)
	auth.Get("/:provider/callback", authHandler.Callback)
	auth.Post("/exchange", authHandler.ExchangeCode)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	requireSession := authmw.Auth(jwtService, resolver)

	readers := api.Group("")
	readers.Use(middleware.BodyParser())
	readers.Use(requireSession)

	readers.Post("/auth/logout-all", authHandler.LogoutAll)
	readers.Get("/users/me", userHandler.GetMe)
	readers.Patch("/users/me", userHandler.UpdateMe)

	readers.Get("/classes", catalogHandler.ListClasses)
	readers.Get("/classes/:id/subjects", catalogHandler.ListSubjects)
	readers.Get("/subjects/:id/chapters", catalogHandler.ListChapters)

	readers.Get("/videos", videoHandler.List)
	readers.Get("/videos/:id", videoHandler.Get)
	readers.Get("/chapters/:id/documents", documentHandler.List)

	readers.Get("/classes/:id/events", sseHandler.Connect)
	readers.Post("/sse/:clientId/subscribe/:id", sseHandler.Subscribe)
	readers.Post("/sse/:clientId/unsubscribe/:id", sseHandler.Unsubscribe)

	staff := api.Group("")
	staff.Use(middleware.BodyParser())
	staff.Use(requireSession)
	staff.Use(authmw.RequireRoles(models.RoleAdmin, models.RoleTeacher))

	staff.Get("/admin/stats", adminHandler.Stats)
	staff.Post("/classes/:id/subjects", catalogHandler.CreateSubject)
	staff.Put("/subjects/:id", catalogHandler.UpdateSubject)
	staff.Delete("/subjects/:id", catalogHandler.DeleteSubject)

	// Upload bodies are streamed to storage as-is and must not be parsed.
	uploads := api.Group("")
	uploads.Use(requireSession)
	uploads.Use(authmw.RequireRoles(models.RoleAdmin, models.RoleTeacher))

	uploads.Post("/videos", videoHandler.Upload)
	uploads.Post("/videos/:id/thumbnail", videoHandler.Thumbnail)
	uploads.Post("/chapters/:id/documents", documentHandler.Upload)

	admin := api.Group("")
	admin.Use(middleware.BodyParser())
	admin.Use(requireSession)
	admin.Use(authmw.RequireRoles(models.RoleAdmin))

	admin.Post("/classes", catalogHandler.CreateClass)
	admin.Put("/classes/:id", catalogHandler.UpdateClass)
	admin.Delete("/classes/:id", catalogHandler.DeleteClass)
	admin.Post("/subjects/:id/chapters", catalogHandler.CreateChapter)

	admin.Delete("/videos/:id", videoHandler.Delete)
	admin.Delete("/documents/:id", documentHandler.Delete)

	admin.Get("/admin/recent-users", adminHandler.RecentUsers)
	admin.Get("/admin/recent-videos", adminHandler.RecentVideos)
	admin.Get("/admin/teachers", adminHandler.ListTeachers)
	admin.Post("/admin/teachers", adminHandler.CreateTeacher)
	admin.Patch("/admin/users/:id/role", adminHandler.UpdateRole)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if local, ok := store.(*storage.LocalProvider); ok {
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Root()))))
	}
	mux.Handle("/", metrics.Middleware(app))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := tokenService.CleanupExpired(ctx)
				if err != nil {
					logr.Warn("refresh token cleanup failed", zap.Error(err))
					continue
				}
				logr.Debug("refresh tokens cleaned up", zap.Int64("removed", removed))
			}
		}
	}()

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
