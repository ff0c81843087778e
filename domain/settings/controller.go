package settings

import (
	"context"

	"github.com/kennelworks/kennel-api/config/router"
)

func NewSettingsController(service SettingsService, requireAdmin router.MiddlewareFunc) *router.RESTController {
	return router.NewVersionedRESTController(
		"SettingsController",
		"v1",
		"/settings",
		func(rs *router.RouterService, c *router.RESTController) {
			var adminOnly []router.MiddlewareFunc
			if requireAdmin != nil {
				adminOnly = append(adminOnly, requireAdmin)
			}

			rs.AddGetHandler(c, nil, "", getSettingsHandler(service))
			rs.AddPatchHandler(c, nil, "", updateSettingsHandler(service), adminOnly...)
			rs.AddPostHandler(c, nil, "/toggle-waitlist", toggleHandler(service.ToggleWaitlist), adminOnly...)
			rs.AddPostHandler(c, nil, "/toggle-stream", toggleHandler(service.ToggleStream), adminOnly...)
		},
	)
}

func getSettingsHandler(service SettingsService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetSettings(ctx.Request.Context())
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Settings retrieved successfully")
	}
}

func updateSettingsHandler(service SettingsService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req UpdateSettingsRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)
			return router.BindErrorResult(err, &req)
		}

		response, err := service.UpdateSettings(ctx.Request.Context(), &req)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Settings updated successfully")
	}
}

func toggleHandler(toggle func(ctx context.Context) (*SettingsResponse, error)) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := toggle(ctx.Request.Context())
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Setting toggled successfully")
	}
}
