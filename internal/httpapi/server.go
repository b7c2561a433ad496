// Package httpapi exposes the translation endpoint and the admin surface
// over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/babel/internal/arbiter"
	"horse.fit/babel/internal/cache"
	"horse.fit/babel/internal/db"
	"horse.fit/babel/internal/globaltime"
	"horse.fit/babel/internal/ledger"
	"horse.fit/babel/internal/translation"
	"horse.fit/babel/internal/translog"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// sharedCacheStore is the slice of the shared cache tier the admin
// surface needs.
type sharedCacheStore interface {
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type Server struct {
	pool       *db.Pool
	accounts   *db.AccountStore
	manager    *translation.Manager
	arbiter    *arbiter.Arbiter
	ledger     *ledger.Ledger
	cache      *cache.Cache
	cacheStore sharedCacheStore
	recorder   *translog.Recorder
	logger     zerolog.Logger
	opts       Options
}

type Deps struct {
	Pool       *db.Pool
	Accounts   *db.AccountStore
	Manager    *translation.Manager
	Arbiter    *arbiter.Arbiter
	Ledger     *ledger.Ledger
	Cache      *cache.Cache
	CacheStore sharedCacheStore
	Recorder   *translog.Recorder
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Provider round trips dominate translate calls.
		writeTimeout = 180 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	cacheStore := deps.CacheStore
	if cacheStore == nil && deps.Pool != nil {
		cacheStore = db.NewCacheStore(deps.Pool)
	}

	return &Server{
		pool:       deps.Pool,
		accounts:   deps.Accounts,
		manager:    deps.Manager,
		arbiter:    deps.Arbiter,
		ledger:     deps.Ledger,
		cache:      deps.Cache,
		cacheStore: cacheStore,
		recorder:   deps.Recorder,
		logger:     logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  origins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/translate", s.handleTranslate)

	admin := api.Group("/admin", s.requireBasicAuth())
	admin.GET("/accounts", s.handleListAccounts)
	admin.POST("/accounts", s.handleUpsertAccount)
	admin.GET("/accounts/:provider/:id", s.handleGetAccount)
	admin.PUT("/accounts/:provider/:id", s.handleUpsertAccount)
	admin.DELETE("/accounts/:provider/:id", s.handleDeleteAccount)
	admin.POST("/accounts/:provider/:id/enable", s.handleEnableAccount)
	admin.POST("/accounts/:provider/:id/disable", s.handleDisableAccount)
	admin.GET("/accounts/:provider/:id/usage", s.handleAccountUsage)
	admin.GET("/accounts/:provider/:id/stats", s.handleAccountStats)
	admin.GET("/stats", s.handleUsageStats)
	admin.GET("/logs", s.handleTranslationLogs)
	admin.GET("/logs/:id", s.handleGetTranslationLog)
	admin.DELETE("/logs/:id", s.handleDeleteTranslationLog)
	admin.DELETE("/logs", s.handleDeleteAllTranslationLogs)
	admin.POST("/cache/clear", s.handleCacheClear)
	admin.GET("/cache/stats", s.handleCacheStats)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("babel server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("babel server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "babel",
		"time":    globaltime.UTC(),
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseDateParam(raw string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("must be YYYY-MM-DD")
	}
	return day.UTC(), nil
}
