package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/internal/models"
	"github.com/kennelworks/kennel-api/pkg/circuitbreaker"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	CacheKey        = "settings:v1"
	DefaultCacheTTL = 30 * time.Second
)

// Cache is the subset of the application cache used for settings reads.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type SettingsService interface {
	GetSettings(ctx context.Context) (*SettingsResponse, error)
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error)
	ToggleWaitlist(ctx context.Context) (*SettingsResponse, error)
	ToggleStream(ctx context.Context) (*SettingsResponse, error)
	// IsWaitlistEnabled reports whether public waitlist signups are accepted.
	// It always reads the stored row and never the cache.
	IsWaitlistEnabled(ctx context.Context) (bool, error)
}

type settingsService struct {
	logger     *log.Logger
	repository SettingsRepository
	cache      Cache
	breaker    circuitbreaker.CircuitBreaker
	ttl        time.Duration
	// loads collapses concurrent cache misses into one database read.
	loads singleflight.Group
}

// NewSettingsService reads through cache when it is non-nil. Cache failures
// trip breaker and fall back to the database.
func NewSettingsService(logger *log.Logger, repository SettingsRepository, cache Cache, breaker circuitbreaker.CircuitBreaker, ttl time.Duration) SettingsService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if breaker == nil {
		breaker = circuitbreaker.New(nil)
	}
	return &settingsService{
		logger:     logger,
		repository: repository,
		cache:      cache,
		breaker:    breaker,
		ttl:        ttl,
	}
}

func (s *settingsService) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if cached, ok := s.readCache(ctx, logger); ok {
		return cached, nil
	}

	// Waiters share this load, so one caller's cancellation must not fail the rest.
	shared := context.WithoutCancel(ctx)
	loaded, err, _ := s.loads.Do(CacheKey, func() (interface{}, error) {
		settings, err := s.repository.Get(shared)
		if err != nil {
			return nil, err
		}
		response := ToSettingsResponse(settings)
		s.writeCache(shared, logger, &response)
		return response, nil
	})
	if err != nil {
		logger.Error("Failed to load settings", "error", err)
		return nil, err
	}

	response := loaded.(SettingsResponse)
	return &response, nil
}

func (s *settingsService) IsWaitlistEnabled(ctx context.Context) (bool, error) {
	settings, err := s.repository.Get(ctx)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to read waitlist flag", "error", err)
		return false, err
	}
	return settings.WaitlistEnabled, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil || req.IsEmpty() {
		logger.Error("UpdateSettings received request with no fields to update")
		return nil, apperrors.NewValidationError("at least one of waitlist_enabled or stream_enabled must be provided", nil)
	}

	updates := make(map[string]interface{}, 2)
	if req.WaitlistEnabled != nil {
		updates[ColumnWaitlistEnabled] = *req.WaitlistEnabled
	}
	if req.StreamEnabled != nil {
		updates[ColumnStreamEnabled] = *req.StreamEnabled
	}

	return s.afterWrite(ctx, logger)(s.repository.Update(ctx, updates))
}

func (s *settingsService) ToggleWaitlist(ctx context.Context) (*SettingsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
	return s.afterWrite(ctx, logger)(s.repository.Toggle(ctx, ColumnWaitlistEnabled))
}

func (s *settingsService) ToggleStream(ctx context.Context) (*SettingsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
	return s.afterWrite(ctx, logger)(s.repository.Toggle(ctx, ColumnStreamEnabled))
}

// afterWrite invalidates the cached row once a write has committed.
func (s *settingsService) afterWrite(ctx context.Context, logger *log.Logger) func(*models.Settings, error) (*SettingsResponse, error) {
	return func(settings *models.Settings, err error) (*SettingsResponse, error) {
		if err != nil {
			logger.Error("Failed to write settings", "error", err)
			return nil, err
		}

		s.invalidate(ctx, logger)
		logger.Info("Settings updated",
			"waitlist_enabled", settings.WaitlistEnabled,
			"stream_enabled", settings.StreamEnabled,
		)

		response := ToSettingsResponse(settings)
		return &response, nil
	}
}

func (s *settingsService) readCache(ctx context.Context, logger *log.Logger) (*SettingsResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	var raw string
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.cache.Get(ctx, CacheKey)
		return err
	})
	if err != nil {
		logger.Warn("Settings cache read failed; using database", "error", err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var cached SettingsResponse
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		logger.Warn("Discarding undecodable settings cache entry", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *settingsService) writeCache(ctx context.Context, logger *log.Logger, response *SettingsResponse) {
	if s.cache == nil {
		return
	}

	encoded, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, CacheKey, string(encoded), s.ttl)
	}); err != nil {
		logger.Warn("Settings cache write failed", "error", err)
	}
}

func (s *settingsService) invalidate(ctx context.Context, logger *log.Logger) {
	s.loads.Forget(CacheKey)
	if s.cache == nil {
		return
	}

	if err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.cache.Delete(ctx, CacheKey)
	}); err != nil {
		logger.Warn("Settings cache invalidation failed", "error", err)
	}
}
