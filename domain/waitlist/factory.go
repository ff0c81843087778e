package waitlist

import (
	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/pkg/factory"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController(requireAdmin router.MiddlewareFunc) *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	db               *gorm.DB
	logger           *log.Logger
	flags            FlagReader
	limiters         factory.RateLimiterFactory
	signupsPerMinute int
}

func NewWaitlistServiceFactory(
	db *gorm.DB,
	logger *log.Logger,
	flags FlagReader,
	limiters factory.RateLimiterFactory,
	signupsPerMinute int,
) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:               db,
		logger:           logger,
		flags:            flags,
		limiters:         limiters,
		signupsPerMinute: signupsPerMinute,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	repository := NewWaitlistRepository(f.db)
	return NewWaitlistService(f.logger, repository, f.flags)
}

func (f *DefaultWaitlistServiceFactory) CreateController(requireAdmin router.MiddlewareFunc) *router.RESTController {
	return NewWaitlistController(ControllerConfig{
		Service:          f.CreateService(),
		Limiters:         f.limiters,
		RequireAdmin:     requireAdmin,
		SignupsPerMinute: f.signupsPerMinute,
	})
}
