package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routemap/internal/cache"
	"routemap/internal/config"
	"routemap/internal/domain"
	"routemap/internal/fetcher"
	"routemap/internal/handler"
	"routemap/internal/hub"
	"routemap/internal/manifest"
	"routemap/internal/middleware"
	"routemap/internal/resolver"
	"routemap/internal/transport"
	"routemap/pkg/overpass"
)

const warmPause = time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting routemap server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"local_base_path", cfg.LocalBasePath,
		"overpass_endpoint", cfg.OverpassEndpoint,
		"redis_enabled", cfg.RedisEnabled,
	)

	localBase, err := transport.BaseURL(cfg.LocalBasePath)
	if err != nil {
		logger.Error("invalid local base path", "error", err)
		os.Exit(1)
	}
	manifestURL, err := transport.BaseURL(cfg.ManifestURL)
	if err != nil {
		logger.Error("invalid manifest location", "error", err)
		os.Exit(1)
	}

	httpClient := transport.NewClient(cfg.FetchTimeout)

	local := fetcher.NewLocal(localBase, httpClient)
	var remote fetcher.Fetcher = fetcher.NewRemote(overpass.New(cfg.OverpassEndpoint, httpClient))

	var redisCache *cache.RedisCache
	var cachedRemote *cache.CachedFetcher
	if cfg.RedisEnabled {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, remote bundles will not be cached", "error", err)
		} else {
			defer redisCache.Close()
			logger.Info("redis cache connected", "addr", cfg.RedisAddr)
			cachedRemote = cache.NewCachedFetcher(remote, redisCache, cfg.CacheTTL, logger)
			remote = cachedRemote
		}
	}

	routeResolver := resolver.New(local, remote, logger)

	catalog := manifest.NewCatalog(manifest.NewLoader(manifestURL, httpClient), logger)
	loadCtx, loadCancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	// A failed load keeps serving with an empty catalog; /readyz reports it.
	_ = catalog.Load(loadCtx)
	loadCancel()

	wsHub := hub.NewHub(logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerWindow > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)
	}

	routeHandler := handler.NewRouteHandler(catalog, routeResolver, logger)
	wsHandler := handler.NewWSHandler(wsHub, catalog, routeResolver, cfg.WSSendBuffer, cfg.WSSendTimeout, logger)
	healthHandler := handler.NewHealthHandler(catalog)
	statsHandler := handler.NewStatsHandler(wsHub, routeResolver, cachedRemote, redisCache, limiter)

	api := http.NewServeMux()
	api.HandleFunc("GET /v1/routes", routeHandler.ListRoutes)
	api.HandleFunc("GET /v1/routes/{relationId}/layer", routeHandler.GetRouteLayer)
	api.HandleFunc("GET /v1/stats", statsHandler.GetStats)

	var apiHandler http.Handler = handler.GzipMiddleware(api)
	if limiter != nil {
		apiHandler = limiter.Middleware(apiHandler)
	}
	apiHandler = handler.CORSMiddleware(handler.LoggingMiddleware(logger)(apiHandler))

	mux := http.NewServeMux()
	mux.Handle("/v1/", apiHandler)
	mux.HandleFunc("GET /v1/ws", wsHandler.ServeWS)
	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsHub.Run(ctx)

	if limiter != nil {
		go limiter.Run(ctx)
	}

	if redisCache != nil {
		go prepareCache(ctx, cfg, redisCache, local, remote, catalog.Manifest().Routes, logger)
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// prepareCache flushes and warms the remote bundle cache. Warming uses its
// own resolver so the served resolver's stats only count page traffic.
func prepareCache(ctx context.Context, cfg *config.Config, rc *cache.RedisCache, local, remote fetcher.Fetcher, routes []domain.Route, logger *slog.Logger) cache.WarmResult {
	if cfg.CacheFlushOnStart && rc != nil {
		n, err := rc.DeletePattern(ctx, cache.KeyBundlePattern(domain.SourceRemote))
		if err != nil {
			logger.Warn("failed to flush bundle cache", "error", err)
		} else {
			logger.Info("flushed bundle cache", "deleted", n)
		}
	}

	if !cfg.CacheWarmOnStart || len(routes) == 0 {
		return cache.WarmResult{}
	}
	warmResolver := resolver.New(local, remote, logger.With("phase", "warmup"))
	return cache.NewWarmer(warmResolver, warmPause, logger).WarmAll(ctx, routes)
}
