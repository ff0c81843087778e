package router

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
)

// resolveLimiter picks the handler override, then the controller override,
// then the router default.
func (routerService *RouterService) resolveLimiter(controller *RESTController, handlerKey string) ratelimit.RateLimiter {
	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter
	}
	return routerService.rateLimiter
}

func setRateLimitHeaders(c *gin.Context, limit int, window time.Duration, remaining int) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Window", window.String())
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Unmatched routes fall through to NoRoute/NoMethod.
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}

		handlerKey := routerService.keyForPathAndMethod(route, c.Request.Method)
		controller, found := routerService.handlerToControllerMap[handlerKey]
		if !found || controller == nil {
			if c.Request.Method == http.MethodOptions || route == metricsPath {
				c.Next()
				return
			}
			routerService.logger.Error("Route registered without a controller mapping", "route", route, "method", c.Request.Method)
			c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResult(fmt.Sprintf("There is no handler configured to handle any resource at the path %s", c.Request.URL.Path)).ToJSON())
			return
		}

		limiter := routerService.resolveLimiter(controller, handlerKey)
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.Budget()

		decision, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			// Fail open: an unavailable limiter store must not take the API down.
			routerService.logger.Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}
		setRateLimitHeaders(c, limit, window, decision.Remaining)

		if !decision.Allowed {
			routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "route", route)
			routerService.metrics.recordRateLimited(c.Request.Method, route)

			retryAfter := strconv.Itoa(max(1, int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: retryAfter,
			}).ToJSON())
			return
		}

		c.Next()
	}
}
