package auth

import (
	"time"

	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/pkg/factory"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
)

// LoginAttemptsPerMinute is the per-IP login budget.
const LoginAttemptsPerMinute = 5

func NewAuthController(service AuthService, limiters factory.RateLimiterFactory) *router.RESTController {
	return router.NewVersionedRESTController(
		"AuthController",
		"v1",
		"/auth",
		func(rs *router.RouterService, c *router.RESTController) {
			requireAdmin := RequireAdmin(service)

			rs.AddPostHandler(c, createLoginRateLimiter(limiters), "/login", loginHandler(service))
			rs.AddPostHandler(c, nil, "/logout", logoutHandler(service), requireAdmin)
			rs.AddGetHandler(c, nil, "/me", meHandler(), requireAdmin)
		},
	)
}

func createLoginRateLimiter(limiters factory.RateLimiterFactory) ratelimit.RateLimiter {
	if limiters == nil {
		return ratelimit.NewInMemoryRateLimiter(LoginAttemptsPerMinute, time.Minute)
	}
	return limiters.CreateRouteRateLimiter("auth-login", LoginAttemptsPerMinute, time.Minute)
}

func loginHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req LoginRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)
			return router.BindErrorResult(err, &req)
		}

		response, err := service.Login(ctx.Request.Context(), &req, SessionMeta{
			UserAgent: ctx.Request.UserAgent(),
			IPAddress: ctx.ClientIP(),
		})
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Logged in successfully")
	}
}

func logoutHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		principal, ok := PrincipalFromContext(ctx)
		if !ok {
			return router.UnauthorizedResult("Authentication required")
		}

		if err := service.Logout(ctx.Request.Context(), principal.SessionID); err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(nil, "Logged out successfully")
	}
}

func meHandler() router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		principal, ok := PrincipalFromContext(ctx)
		if !ok {
			return router.UnauthorizedResult("Authentication required")
		}

		return router.OKResult(principal, "Admin retrieved successfully")
	}
}
