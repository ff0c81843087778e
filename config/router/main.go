package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/pkg/constants"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	DefaultTimeoutDuration = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)
	DefaultPort            = "8080"
	DefaultHSTSMaxAge      = int64(31536000)
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RouterService struct {
	engine      *gin.Engine
	server      *http.Server
	logger      *log.Logger
	config      RouterConfig
	rateLimiter ratelimit.RateLimiter
	redisClient *redis.Client
	metrics     *metrics

	// Keyed by "METHOD-path" for handlers and by mount point for controllers.
	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

// CreateRouterService builds the gin engine with the shared middleware chain.
// A cache exposing a Redis client makes the default rate limit distributed.
func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	cfg := withDefaults(routerConfig)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = true

	if cfg.TracingServiceName != "" {
		engine.Use(otelgin.Middleware(cfg.TracingServiceName))
		logger.Info("Tracing middleware enabled", "service", cfg.TracingServiceName)
	}

	// An empty list stops gin from trusting X-Forwarded-For from anyone, so
	// ClientIP() cannot be spoofed around per-IP budgets.
	if err := engine.SetTrustedProxies(expandTrustedProxies(cfg.TrustedProxies)); err != nil {
		logger.Error("Invalid trusted proxies; disabling trusted proxies", "error", err)
		_ = engine.SetTrustedProxies(nil)
	}

	rs := &RouterService{
		engine:                 engine,
		logger:                 logger,
		config:                 cfg,
		redisClient:            redisFromCache(cache),
		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.initRateLimiting()
	rs.mountMetrics()
	engine.Use(rs.middlewareChain()...)

	engine.NoRoute(rs.fallback(http.StatusNotFound, "Route not found", apperrors.ErrorTypeNotFound))
	engine.NoMethod(rs.fallback(http.StatusMethodNotAllowed, "Method not allowed", apperrors.ErrorTypeInvalidRequest))

	rs.server = newHTTPServer(cfg, engine)

	logger.Info("Router service initialized", "port", cfg.Port)
	return rs
}

// middlewareChain runs in order: response hardening, admission (body size,
// CORS, rate limit, deadline), then request-scoped logging.
func (routerService *RouterService) middlewareChain() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		routerService.securityHeadersMiddleware(),
		routerService.maxBodySizeMiddleware(),
		routerService.corsMiddleware(),
		routerService.rateLimitMiddleware(),
		routerService.timeoutMiddleware(),
		routerService.correlationIDMiddleware(),
		routerService.loggerInjectionMiddleware(),
		routerService.requestLoggingMiddleware(),
	}
}

func (routerService *RouterService) fallback(status int, message, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		routerService.logger.WithCorrelationID(c.Request.Context()).Warn(message,
			"method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(status, ErrorResult(status, message, apperrors.ErrorPayload{Kind: kind}).ToJSON())
	}
}

// newHTTPServer puts hard I/O limits on the server; handlers never leave the
// request goroutine.
func newHTTPServer(cfg RouterConfig, handler http.Handler) *http.Server {
	if cfg.Gzip {
		handler = gziphandler.GzipHandler(handler)
	}
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func redisFromCache(cache Cache) *redis.Client {
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

func withDefaults(routerConfig *RouterConfig) RouterConfig {
	var cfg RouterConfig
	if routerConfig != nil {
		cfg = *routerConfig
	}

	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = constants.DefaultRateLimitRequests
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = constants.DefaultRateLimitWindow
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeoutDuration
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.HSTS.MaxAge <= 0 {
		cfg.HSTS.MaxAge = DefaultHSTSMaxAge
	}

	return cfg
}

func expandTrustedProxies(proxies []string) []string {
	if len(proxies) == 0 {
		return nil
	}
	for _, p := range proxies {
		if p == "*" {
			return []string{"0.0.0.0/0", "::/0"}
		}
	}
	return proxies
}

// initRateLimiting probes Redis once; an unreachable server downgrades the
// default limiter to in-memory for the life of the process.
func (routerService *RouterService) initRateLimiting() {
	redisClient := routerService.redisClient

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			routerService.logger.Warn("Redis unreachable, rate limiting in memory", "error", err)
			redisClient = nil
		}
	}

	routerService.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: routerService.config.RateLimitRequests,
		Window:   routerService.config.RateLimitWindow,
		Redis:    redisClient,
		Logger:   routerService.logger,
	})

	routerService.logger.Info("Rate limiting initialized",
		"distributed", redisClient != nil,
		"requests", routerService.config.RateLimitRequests,
		"window", routerService.config.RateLimitWindow)
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	for key, limiter := range routerService.rateLimitOverrides {
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "key", key, "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
