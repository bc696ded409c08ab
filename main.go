// Package main scribe library API.
//
// @title                      Scribe library API
// @version                    1.0
// @description                Book catalog, loan applications and loans.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Use:  Bearer <JWT>
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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"scribe-backend/docs"
	"scribe-backend/internal/jobs"
	"scribe-backend/internal/library/books"
	"scribe-backend/internal/library/categories"
	"scribe-backend/internal/library/loans"
	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/config"
	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/httplog"
	"scribe-backend/internal/platform/validation"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Mode)
	log.Info("starting", "mode", cfg.Mode, "version", cfg.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	log.Info("connected to DB", "db", cfg.DB.DBName)

	if cfg.DB.Migrate {
		if err := db.Migrate(ctx, conn); err != nil {
			log.Error("migrate", "err", err)
			os.Exit(1)
		}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	if err := validation.Register(); err != nil {
		log.Error("register validators", "err", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenIssuer([]byte(cfg.Auth.Secret), cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	identity := auth.NewService(auth.NewStore(conn), auth.NewRedisRefreshStore(rdb), tokens)
	if cfg.Auth.AdminEmail != "" {
		created, err := identity.EnsureAdministrator(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			log.Error("seed administrator", "err", err)
			os.Exit(1)
		}
		if created {
			log.Info("administrator account created", "email", cfg.Auth.AdminEmail)
		}
	}

	loanSvc := loans.NewService(loans.NewStore(conn))
	r := newRouter(cfg, log, routes{
		identity:   identity,
		tokens:     tokens,
		categories: categories.NewService(categories.NewStore(conn)),
		books:      books.NewService(books.NewStore(conn)),
		loans:      loanSvc,
		checks: map[string]func(context.Context) error{
			"mysql": conn.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	sched := jobs.New(log)
	if cfg.Jobs.ExpireStaleSchedule != "" {
		if _, err := sched.ExpireStaleApplications(cfg.Jobs.ExpireStaleSchedule, loanSvc, cfg.Jobs.StaleAfter); err != nil {
			log.Error("schedule stale application expiry", "err", err)
			os.Exit(1)
		}
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			log.Info("listening (TLS)", "addr", srv.Addr)
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			log.Info("listening", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve", "err", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

func newLogger(mode string) *slog.Logger {
	level := slog.LevelInfo
	if mode == config.ModeDev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

type routes struct {
	identity   *auth.Service
	tokens     *auth.TokenIssuer
	categories *categories.Service
	books      *books.Service
	loans      *loans.Service
	// readyz で確認する依存先
	checks map[string]func(context.Context) error
}

func newRouter(cfg *config.Config, log *slog.Logger, rt routes) *gin.Engine {
	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), httplog.RequestID(), httplog.Logger(log))
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == config.ModeDev {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "Location", "X-Request-ID"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/readyz", readyHandler(rt.checks))

	docs.SwaggerInfo.BasePath = "/api/v1"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1
	api := r.Group("/api/v1")
	authn := auth.RequireAuth(rt.tokens)
	auth.RegisterRoutes(api.Group("/identity"), rt.identity, authn)
	categories.RegisterRoutes(api, rt.categories, authn)
	books.RegisterRoutes(api, rt.books, authn, auth.OptionalAuth(rt.tokens))
	loans.RegisterRoutes(api, rt.loans, authn)

	r.NoRoute(func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r
}

// readyHandler は依存先を順に ping し、1 つでも失敗すれば 503 を返す。
func readyHandler(checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		res := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				res[name] = err.Error()
				continue
			}
			res[name] = "ok"
		}
		c.JSON(status, res)
	}
}
