package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/internal/models"
	"github.com/kennelworks/kennel-api/pkg/constants"
	"github.com/kennelworks/kennel-api/pkg/utils"
	"gorm.io/gorm"
)

const (
	DefaultSessionTTL               = 24 * time.Hour
	DefaultSettingsCacheTTL         = 30 * time.Second
	DefaultWaitlistSignupsPerMinute = 10
	DefaultBcryptCost               = 12
	MinJWTSecretLength              = 32
)

var ErrJWTSecretRequired = errors.New("JWT_SECRET is required outside development environments")

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	AppEnv string
	Port   string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	MaxBodyBytes      int64
	AllowedOrigins    []string
	TrustedProxies    []string
	HSTS              router.HSTSConfig
	MetricsEnabled    bool
	GzipResponses     bool

	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
	BcryptCost int

	SettingsCacheTTL         time.Duration
	WaitlistSignupsPerMinute int
}

func NewAppConfig() *AppConfig {
	appEnv := GetAppEnv()

	return &AppConfig{
		AppEnv: appEnv,
		Port:   utils.GetEnvTrimmedOrDefault("APP_PORT", router.DefaultPort),

		RateLimitRequests: utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:   utils.GetEnvDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow),
		RequestTimeout:    utils.GetEnvDuration("REQUEST_TIMEOUT", router.DefaultTimeoutDuration),
		MaxBodyBytes:      utils.GetEnvPositiveInt64("MAX_REQUEST_BODY_BYTES", router.DefaultMaxBodyBytes),
		AllowedOrigins:    utils.GetEnvList("CORS_ALLOWED_ORIGIN"),
		TrustedProxies:    utils.GetEnvList("TRUSTED_PROXIES"),
		HSTS: router.HSTSConfig{
			Enabled:           utils.GetEnvBool("HSTS_ENABLED", IsProductionEnv(appEnv)),
			MaxAge:            utils.GetEnvPositiveInt64("HSTS_MAX_AGE", router.DefaultHSTSMaxAge),
			IncludeSubdomains: utils.GetEnvBool("HSTS_INCLUDE_SUBDOMAINS", true),
		},
		MetricsEnabled: utils.GetEnvBool("METRICS_ENABLED", true),
		GzipResponses:  utils.GetEnvBool("HTTP_GZIP", true),

		JWTSecret:  utils.GetEnvTrimmed("JWT_SECRET"),
		JWTIssuer:  utils.GetEnvTrimmedOrDefault("JWT_ISSUER", utils.DefaultServiceName),
		SessionTTL: utils.GetEnvDuration("SESSION_TTL", DefaultSessionTTL),
		BcryptCost: utils.GetEnvPositiveInt("BCRYPT_COST", DefaultBcryptCost),

		SettingsCacheTTL:         utils.GetEnvDuration("SETTINGS_CACHE_TTL", DefaultSettingsCacheTTL),
		WaitlistSignupsPerMinute: utils.GetEnvPositiveInt("WAITLIST_SIGNUPS_PER_MINUTE", DefaultWaitlistSignupsPerMinute),
	}
}

// Validate rejects settings that are only tolerable on a developer machine.
func (ac *AppConfig) Validate() error {
	if IsDevLikeEnv(ac.AppEnv) {
		return nil
	}
	if ac.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	if len(ac.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}
	return nil
}

// ensureJWTSecret gives development environments a per-process secret.
// Tokens do not survive a restart.
func (ac *AppConfig) ensureJWTSecret(logger *log.Logger) error {
	if ac.JWTSecret != "" {
		return nil
	}

	buf := make([]byte, MinJWTSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate JWT secret: %w", err)
	}
	ac.JWTSecret = hex.EncodeToString(buf)

	logger.Warn("JWT_SECRET not set; using an ephemeral secret for this process")
	return nil
}

func (ac *AppConfig) RouterConfig() *router.RouterConfig {
	cfg := &router.RouterConfig{
		Port:              ac.Port,
		RateLimitRequests: ac.RateLimitRequests,
		RateLimitWindow:   ac.RateLimitWindow,
		RequestTimeout:    ac.RequestTimeout,
		MaxBodyBytes:      ac.MaxBodyBytes,
		AllowedOrigins:    ac.AllowedOrigins,
		TrustedProxies:    ac.TrustedProxies,
		HSTS:              ac.HSTS,
		MetricsEnabled:    ac.MetricsEnabled,
		Gzip:              ac.GzipResponses,
	}
	if utils.IsTracingEnabled() {
		cfg.TracingServiceName = utils.OTelServiceName()
	}
	return cfg
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	appConfig := NewAppConfig()
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	if err := appConfig.ensureJWTSecret(logger); err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := ValidateAutoMigrateAllowed(appConfig.AppEnv); err != nil {
			return nil, err
		}
		if appConfig.AppEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger, NewTracingConfig())
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, NewDBConfig())
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	cache := NewCacheConfig().NewCacheOrNil(logger)
	routerService := router.CreateRouterService(logger, cache, appConfig.RouterConfig())

	logger.Info("Application configuration loaded successfully", "env", appConfig.AppEnv)

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}, nil
}
