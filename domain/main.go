package domain

import (
	"github.com/kennelworks/kennel-api/config"
	"github.com/kennelworks/kennel-api/domain/auth"
	"github.com/kennelworks/kennel-api/domain/monitoring"
	"github.com/kennelworks/kennel-api/domain/settings"
	"github.com/kennelworks/kennel-api/domain/waitlist"
	"github.com/kennelworks/kennel-api/pkg/factory"
)

// SetupCoreDomain builds every domain against the loaded configuration and
// mounts its controller on the router.
func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	cfg := appConfig.Config
	logger := appConfig.Logger

	limiters := factory.NewDefaultRateLimiterFactory(cfg.RateLimitRequests, cfg.RateLimitWindow, appConfig.Cache, logger)

	settingsFactory := settings.NewSettingsServiceFactory(appConfig.DB, logger, appConfig.Cache, cfg.SettingsCacheTTL)
	authFactory := auth.NewAuthServiceFactory(appConfig.DB, logger, auth.Config{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, limiters)
	requireAdmin := authFactory.RequireAdmin()

	waitlistFactory := waitlist.NewWaitlistServiceFactory(
		appConfig.DB,
		logger,
		settingsFactory.CreateService(),
		limiters,
		cfg.WaitlistSignupsPerMinute,
	)

	rs := appConfig.RouterService
	rs.MountController(monitoring.NewMonitoringControllerFactory(appConfig.DB, logger, appConfig.Cache, limiters).CreateController())
	rs.MountController(authFactory.CreateController())
	rs.MountController(settingsFactory.CreateController(requireAdmin))
	rs.MountController(waitlistFactory.CreateController(requireAdmin))
}
