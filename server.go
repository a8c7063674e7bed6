package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/handlers"
	"github.com/mmdatafocus/brokerage_backend/middlewares"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func newRouter(logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestIdMiddleware())
	r.Use(cors.New(corsConfig()))
	if rateLimiter := middlewares.RateLimiterFromEnv(); rateLimiter != nil {
		r.Use(rateLimiter.Middleware)
	}
	r.Use(middlewares.ErrorLogger(logger))
	r.Use(gin.Recovery())

	handlers.RegisterRoutes(r)
	return r
}

// corsConfig: explicit allowlist from CORS_ORIGINS (comma-separated) in
// production, any origin elsewhere.
func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	allowedOrigins := splitAndTrim(os.Getenv("CORS_ORIGINS"))
	if config.IsProduction() {
		// deny all when unset
		c.AllowOrigins = allowedOrigins
		if len(allowedOrigins) == 0 {
			c.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		c.AllowAllOrigins = true
	}
	c.AddAllowMethods("PATCH")
	c.AddAllowHeaders("Authorization", middlewares.RequestIdHeader, handlers.IdempotencyKeyHeader)
	c.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.RequestIdHeader, handlers.IdempotentReplayedHeader)
	return c
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Listen first; /api answers 503 until the database is connected.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	go connectDependencies(sigCtx, logger)

	logger.WithFields(logrus.Fields{"port": port}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if err := config.ClosePubSub(); err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("closing pubsub client: " + err.Error())
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
	if db := config.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// connectDependencies connects the database (and Redis when configured) and
// runs migrations unless SKIP_MIGRATIONS=true.
func connectDependencies(ctx context.Context, logger *logrus.Logger) {
	go config.ConnectRedisWithRetry(ctx)

	if err := config.ConnectDatabaseWithRetry(ctx); err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Warn("gave up connecting: " + err.Error())
		return
	}

	if strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		return
	}
	if err := models.MigrateTable(ctx); err != nil {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Error("migration failed: " + err.Error())
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
