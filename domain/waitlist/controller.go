package waitlist

import (
	"time"

	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/pkg/factory"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
)

// DefaultSignupsPerMinute is the per-IP budget for public signups.
const DefaultSignupsPerMinute = 10

type ControllerConfig struct {
	Service          WaitlistService
	Limiters         factory.RateLimiterFactory
	RequireAdmin     router.MiddlewareFunc
	SignupsPerMinute int
}

func NewWaitlistController(cfg ControllerConfig) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			signupLimiter := createSignupRateLimiter(cfg)
			adminOnly := adminMiddlewares(cfg.RequireAdmin)

			rs.AddPostHandler(c, signupLimiter, "", createWaitlistEntryHandler(cfg.Service))
			rs.AddGetHandler(c, nil, "", listWaitlistEntriesHandler(cfg.Service), adminOnly...)
			rs.AddGetHandler(c, nil, "/:id", getWaitlistEntryHandler(cfg.Service), adminOnly...)
			rs.AddPatchHandler(c, nil, "/:id", updateWaitlistEntryHandler(cfg.Service), adminOnly...)
			rs.AddDeleteHandler(c, nil, "/:id", deleteWaitlistEntryHandler(cfg.Service), adminOnly...)
		},
	)
}

func adminMiddlewares(requireAdmin router.MiddlewareFunc) []router.MiddlewareFunc {
	if requireAdmin == nil {
		return nil
	}
	return []router.MiddlewareFunc{requireAdmin}
}

func createSignupRateLimiter(cfg ControllerConfig) ratelimit.RateLimiter {
	perMinute := cfg.SignupsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultSignupsPerMinute
	}

	if cfg.Limiters == nil {
		return ratelimit.NewInMemoryRateLimiter(perMinute, time.Minute)
	}
	return cfg.Limiters.CreateRouteRateLimiter("waitlist-signup", perMinute, time.Minute)
}

func createWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req CreateWaitlistEntryRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)
			return router.BindErrorResult(err, &req)
		}

		response, err := service.CreateEntry(ctx.Request.Context(), &req)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.CreatedResult(response, "Waitlist entry")
	}
}

func listWaitlistEntriesHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.ListEntries(ctx.Request.Context())
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Waitlist entries retrieved successfully")
	}
}

func getWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseUUIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		response, err := service.FindEntryByID(ctx.Request.Context(), id)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Waitlist entry retrieved successfully")
	}
}

func updateWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		id, errResult := router.ParseUUIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		var req UpdateWaitlistEntryRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)
			return router.BindErrorResult(err, &req)
		}

		response, err := service.UpdateEntry(ctx.Request.Context(), id, &req)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Waitlist entry updated successfully")
	}
}

func deleteWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseUUIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		response, err := service.DeleteEntry(ctx.Request.Context(), id)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Waitlist entry deleted successfully")
	}
}
