package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/arbiter"
	"horse.fit/babel/internal/cache"
	"horse.fit/babel/internal/cli"
	"horse.fit/babel/internal/config"
	"horse.fit/babel/internal/db"
	"horse.fit/babel/internal/httpapi"
	"horse.fit/babel/internal/ledger"
	"horse.fit/babel/internal/logging"
	"horse.fit/babel/internal/translation"
	"horse.fit/babel/internal/translog"
)

const purgeInterval = time.Hour

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 180*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := ensureDefaultAdmin(dbCtx, pool, cfg, logger); err != nil {
		logger.Warn().Err(err).Msg("default admin bootstrap skipped")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	go runPurgeLoop(ctx, pool, logger)

	deps := buildPipeline(pool, cfg, logger)
	srv := httpapi.NewServer(deps, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

// buildPipeline wires the translation pipeline onto one database pool.
func buildPipeline(pool *db.Pool, cfg *config.Config, logger zerolog.Logger) httpapi.Deps {
	accounts := db.NewAccountStore(pool)
	led := ledger.New(db.NewCounterStore(pool), logger)
	arb := arbiter.New(accounts, led, logger)
	recorder := translog.NewRecorder(db.NewTranslogStore(pool), logger)

	var translationCache *cache.Cache
	if cfg.CacheEnabled {
		translationCache = cache.New(db.NewCacheStore(pool), cache.Options{
			Enabled:       true,
			Capacity:      cfg.CacheCapacity,
			TTL:           cfg.CacheTTL(),
			MinTextLength: cfg.CacheMinTextLength,
			CrossProvider: cfg.CacheCrossProvider,
			Providers:     cfg.ProviderPriorityList(),
		}, logger)
	}

	manager := translation.NewManager(
		translation.NewDefaultRegistry(), arb, led, translationCache, recorder,
		translation.Options{
			ProviderPriority: cfg.ProviderPriorityList(),
			BatchCeiling:     cfg.BatchCeiling,
		}, logger)

	return httpapi.Deps{
		Pool:       pool,
		Accounts:   accounts,
		Manager:    manager,
		Arbiter:    arb,
		Ledger:     led,
		Cache:      translationCache,
		CacheStore: db.NewCacheStore(pool),
		Recorder:   recorder,
	}
}

func runPurgeLoop(ctx context.Context, pool *db.Pool, logger zerolog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := pool.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("expired row purge failed")
				continue
			}
			if purged > 0 {
				logger.Info().Int64("rows", purged).Msg("purged expired rows")
			}
		}
	}
}
