package settings

import (
	"time"

	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/pkg/circuitbreaker"
	"gorm.io/gorm"
)

type SettingsServiceFactory interface {
	CreateService() SettingsService
	CreateController(requireAdmin router.MiddlewareFunc) *router.RESTController
}

type DefaultSettingsServiceFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	cache    Cache
	cacheTTL time.Duration
	service  SettingsService
}

func NewSettingsServiceFactory(db *gorm.DB, logger *log.Logger, cache Cache, cacheTTL time.Duration) SettingsServiceFactory {
	return &DefaultSettingsServiceFactory{
		db:       db,
		logger:   logger,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// CreateService returns one shared instance so the waitlist flag reader and
// the settings controller trip the same breaker.
func (f *DefaultSettingsServiceFactory) CreateService() SettingsService {
	if f.service != nil {
		return f.service
	}

	breaker := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		ProbeSuccesses:   2,
		OnStateChange: func(from, to circuitbreaker.State) {
			f.logger.Warn("Settings cache circuit changed state", "from", from.String(), "to", to.String())
		},
	})

	f.service = NewSettingsService(f.logger, NewSettingsRepository(f.db), f.cache, breaker, f.cacheTTL)
	return f.service
}

func (f *DefaultSettingsServiceFactory) CreateController(requireAdmin router.MiddlewareFunc) *router.RESTController {
	return NewSettingsController(f.CreateService(), requireAdmin)
}
