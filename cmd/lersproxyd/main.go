// SPDX-License-Identifier: MIT

// lersproxyd is the report gateway daemon. It fronts one vendor metering
// server with a narrow, stable HTTP surface under /lersproxy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/1001011000101101/lers-plugins-sub000/internal/api"
	"github.com/1001011000101101/lers-plugins-sub000/internal/cache"
	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
	"github.com/1001011000101101/lers-plugins-sub000/internal/health"
	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	xlog "github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/ratelimit"
	"github.com/1001011000101101/lers-plugins-sub000/internal/session"
	"github.com/1001011000101101/lers-plugins-sub000/internal/version"
)

// maskURL strips user info from a URL for safe logging.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	return u.String()
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	targetsPath := flag.String("targets", "", "path to the remote server targets file (YAML, optional)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until the real configuration is loaded.
	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: "lersproxy",
		Version: version.Version,
	})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Service: "lersproxy",
		Version: version.Version,
	})

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("addr", cfg.Listen).
		Msg("starting lersproxy")
	logger.Info().Msgf("→ Vendor server: %s", maskURL(cfg.LERSBaseURL))
	logger.Info().Msgf("→ Session timeout: %s", cfg.SessionTimeout)
	logger.Info().Msgf("→ Generation ceiling: %s", cfg.GenerateTimeout)
	logger.Info().Msgf("→ Cache backend: %s", cfg.CacheBackend)
	if cfg.ClientAllowlist == "" {
		logger.Warn().
			Str("security", "weak").
			Msg("→ Client allowlist: NOT configured, all addresses admitted")
	}

	healthMgr := health.NewManager(version.Version)

	templates, closeCache, err := buildCache(cfg, healthMgr)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "cache.init_failed").
			Msg("failed to initialize template cache")
	}
	defer closeCache()

	connector := func(ctx context.Context, login, password string) (lers.API, error) {
		return lers.Connect(ctx, lers.Options{
			BaseURL:  cfg.LERSBaseURL,
			Login:    login,
			Password: password,
			Timeout:  cfg.LERSTimeout,
			Insecure: cfg.LERSInsecure,
		})
	}
	sessions := session.NewManager(cfg.SessionTimeout, connector)

	healthMgr.RegisterChecker(health.CheckerFunc{
		CheckName: "sessions",
		Fn: func(context.Context) health.CheckResult {
			return health.CheckResult{
				Status:  health.StatusHealthy,
				Message: fmt.Sprintf("%d active", sessions.Count()),
			}
		},
	})

	if *targetsPath != "" {
		watchTargets(ctx, *targetsPath, healthMgr)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Limit:  cfg.LoginRateLimit,
		Window: cfg.LoginRateWindow,
	})

	srv := api.NewServer(cfg, sessions, templates, limiter, healthMgr)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Write timeout must exceed the generation ceiling or long reports
		// are cut off mid-download.
		WriteTimeout: cfg.GenerateTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "listen_failed").
			Str("addr", cfg.Listen).
			Msg("failed to listen")
	}
	if cfg.MaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxConns)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpSrv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Str("event", "shutdown.signal").Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Str("event", "server.failed").Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Str("event", "shutdown.failed").Msg("graceful shutdown failed")
	}

	// Release every vendor token before exit; leaked tokens hold licensed
	// connection slots on the vendor side.
	sessions.CloseAll(shutdownCtx)
	logger.Info().Str("event", "shutdown.complete").Msg("server exiting")
}

// buildCache selects the template cache backend from configuration.
func buildCache(cfg config.AppConfig, healthMgr *health.Manager) (cache.Store, func(), error) {
	logger := xlog.WithComponent("cache")
	if cfg.CacheBackend != "redis" {
		return cache.NewMemoryStore(), func() {}, nil
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		healthMgr.RegisterChecker(health.CheckerFunc{
			CheckName: "redis",
			Fn: func(ctx context.Context) health.CheckResult {
				if err := pinger.Ping(ctx); err != nil {
					return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
				}
				return health.CheckResult{Status: health.StatusHealthy}
			},
		})
	}

	closeFn := func() {}
	if closer, ok := store.(interface{ Close() error }); ok {
		closeFn = func() { _ = closer.Close() }
	}
	return store, closeFn, nil
}

// watchTargets keeps a live view of the remote targets file. The gateway
// never dials the targets itself; the readiness check only tells operators
// whether the file parsed, so a broken edit is caught before the next batch
// run. A failed reload keeps the previous list.
func watchTargets(ctx context.Context, path string, healthMgr *health.Manager) {
	logger := xlog.WithComponent("targets")

	var current atomic.Value // []config.ServerTarget
	var lastErr atomic.Value // string, empty when healthy

	targets, err := config.LoadTargets(path)
	if err != nil {
		lastErr.Store(err.Error())
		logger.Error().Err(err).Str("event", "targets.load_failed").Str("path", path).Msg("targets file rejected")
	} else {
		current.Store(targets)
		lastErr.Store("")
		logger.Info().
			Str("event", "targets.loaded").
			Str("path", path).
			Int("count", len(targets)).
			Msg("targets file loaded")
	}

	onChange := func(targets []config.ServerTarget) {
		current.Store(targets)
		lastErr.Store("")
	}
	if err := config.WatchTargets(ctx, path, onChange); err != nil {
		logger.Error().Err(err).Str("event", "targets.watch_failed").Msg("targets hot reload disabled")
	}

	healthMgr.RegisterChecker(health.CheckerFunc{
		CheckName: "targets",
		Fn: func(context.Context) health.CheckResult {
			if msg, _ := lastErr.Load().(string); msg != "" {
				return health.CheckResult{Status: health.StatusUnhealthy, Message: msg}
			}
			count := 0
			if targets, ok := current.Load().([]config.ServerTarget); ok {
				count = len(targets)
			}
			return health.CheckResult{
				Status:  health.StatusHealthy,
				Message: fmt.Sprintf("%d targets", count),
			}
		},
	})
}
