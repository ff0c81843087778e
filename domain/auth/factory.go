package auth

import (
	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/pkg/factory"
	"gorm.io/gorm"
)

type AuthServiceFactory interface {
	CreateService() AuthService
	CreateController() *router.RESTController
	RequireAdmin() router.MiddlewareFunc
}

type DefaultAuthServiceFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	config   Config
	limiters factory.RateLimiterFactory
	service  AuthService
}

func NewAuthServiceFactory(db *gorm.DB, logger *log.Logger, cfg Config, limiters factory.RateLimiterFactory) AuthServiceFactory {
	return &DefaultAuthServiceFactory{
		db:       db,
		logger:   logger,
		config:   cfg,
		limiters: limiters,
	}
}

func (f *DefaultAuthServiceFactory) CreateService() AuthService {
	if f.service == nil {
		f.service = NewAuthService(f.logger, NewAuthRepository(f.db), f.config)
	}
	return f.service
}

func (f *DefaultAuthServiceFactory) CreateController() *router.RESTController {
	return NewAuthController(f.CreateService(), f.limiters)
}

func (f *DefaultAuthServiceFactory) RequireAdmin() router.MiddlewareFunc {
	return RequireAdmin(f.CreateService())
}
