package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/pkg/factory"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	monitoringRequestsPerMinute = 10
	healthCheckTimeout          = 2 * time.Second

	StatusOK       = "ok"
	StatusDegraded = "degraded"

	CheckUp      = "up"
	CheckDown    = "down"
	CheckSkipped = "skipped"
)

var errNoDatabase = errors.New("database not configured")

type Cache interface {
	Ping(ctx context.Context) error
}

// Check is the outcome of one dependency probe.
type Check struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthStatus reports 1/0 flags per dependency. Only the database decides
// overall status; settings and rate limits fall back without the cache.
type HealthStatus struct {
	Status   string           `json:"status"`
	Database int              `json:"database"`
	Cache    int              `json:"cache"`
	Uptime   int              `json:"uptime"` // seconds
	Checks   map[string]Check `json:"checks"`
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	startTime time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache, limiters factory.RateLimiterFactory) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			limiter := monitoringLimiter(limiters)
			rs.AddGetHandler(c, limiter, "", ctrl.status)
			rs.AddGetHandler(c, limiter, "health", ctrl.health)
		},
	)
}

func monitoringLimiter(limiters factory.RateLimiterFactory) ratelimit.RateLimiter {
	if limiters == nil {
		return ratelimit.NewInMemoryRateLimiter(monitoringRequestsPerMinute, time.Minute)
	}
	return limiters.CreateRouteRateLimiter("monitoring", monitoringRequestsPerMinute, time.Minute)
}

func (ctrl *MonitoringController) status(*router.RequestContext) *router.ServiceResult {
	return router.OKResult("kennel-api is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) health(c *router.RequestContext) *router.ServiceResult {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	return &router.ServiceResult{
		StatusCode: http.StatusOK,
		Data:       ctrl.probe(ctx, router.GetLogger(c)),
		Message:    "kennel-api health check completed",
	}
}

// probe runs the dependency checks in parallel under ctx's deadline.
func (ctrl *MonitoringController) probe(ctx context.Context, logger *log.Logger) HealthStatus {
	var db, cache Check

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db = timed(gctx, ctrl.pingDatabase)
		return nil
	})
	g.Go(func() error {
		if ctrl.cache == nil {
			cache = Check{Status: CheckSkipped}
			return nil
		}
		cache = timed(gctx, ctrl.cache.Ping)
		return nil
	})
	_ = g.Wait()

	hs := HealthStatus{
		Status: StatusOK,
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
		Checks: map[string]Check{"database": db, "cache": cache},
	}
	if db.Status == CheckUp {
		hs.Database = 1
	} else {
		hs.Status = StatusDegraded
		logger.Error("Database health check failed")
	}
	switch cache.Status {
	case CheckUp:
		hs.Cache = 1
	case CheckDown:
		logger.Warn("Cache health check failed")
	}
	return hs
}

func timed(ctx context.Context, ping func(context.Context) error) Check {
	start := time.Now()
	err := ping(ctx)
	c := Check{Status: CheckUp, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		c.Status = CheckDown
	}
	return c
}

func (ctrl *MonitoringController) pingDatabase(ctx context.Context) error {
	if ctrl.db == nil {
		return errNoDatabase
	}
	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
