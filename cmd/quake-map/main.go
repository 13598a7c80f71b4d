package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-quake-map/internal/api"
	"github.com/mr1hm/go-quake-map/internal/config"
	"github.com/mr1hm/go-quake-map/internal/decorate"
	"github.com/mr1hm/go-quake-map/internal/feed"
	"github.com/mr1hm/go-quake-map/internal/ingestion"
	"github.com/mr1hm/go-quake-map/internal/logging"
	"github.com/mr1hm/go-quake-map/internal/mapview"
	"github.com/mr1hm/go-quake-map/internal/observability"
	"github.com/mr1hm/go-quake-map/internal/repository"
	"github.com/mr1hm/go-quake-map/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if cfg.Map.AccessToken == "" {
		slog.Warn("MAPBOX_ACCESS_TOKEN is not set, base layer tiles will fail to load")
	}

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	target := mapview.New(mapview.Options{
		AccessToken: cfg.Map.AccessToken,
		Center:      [2]float64{cfg.Map.CenterLat, cfg.Map.CenterLon},
		Zoom:        cfg.Map.Zoom,
		Clock:       clock,
	})

	// Bodies are cached per refresh interval; the scheduled poll and any
	// POST /api/refresh calls inside one window share a single download.
	fetcher := feed.NewCachedFetcher(
		feed.NewHTTPFetcher(cfg.Feeds.FetchTimeout),
		cfg.Feeds.RefreshInterval,
		cfg.Feeds.CacheBytes,
		clock,
		metrics,
	)
	decorator := decorate.New(clock, metrics)
	broadcaster := stream.NewBroadcaster(metrics)

	mgr := ingestion.NewManager(cfg, fetcher, decorator, db, broadcaster, metrics)
	mgr.Start(ctx, target)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(target, db, decorator, broadcaster, mgr)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	broadcaster.Close() // ends open SSE streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// no more refresh requests can arrive; archive whatever is still queued
	mgr.Stop()

	slog.Info("shutdown complete")
}
