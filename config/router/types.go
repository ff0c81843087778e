package router

import (
	"time"

	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

type HandlerFunction func(*RequestContext) *ServiceResult

type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

// HSTSConfig controls the Strict-Transport-Security header on HTTPS requests.
type HSTSConfig struct {
	Enabled           bool
	MaxAge            int64
	IncludeSubdomains bool
}

// RouterConfig is resolved from the environment by the config package.
// Zero values disable metrics and tracing, deny cross-origin requests and
// ignore X-Forwarded-For.
type RouterConfig struct {
	Port              string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	MaxBodyBytes      int64
	AllowedOrigins    []string
	// TrustedProxies lists CIDRs or IPs; "*" trusts everyone.
	TrustedProxies []string
	HSTS           HSTSConfig
	MetricsEnabled bool
	// Gzip compresses responses for clients that accept it.
	Gzip bool
	// TracingServiceName enables otelgin spans when set.
	TracingServiceName string
}

func (result *ServiceResult) ToJSON() gin.H {
	return gin.H{
		"code":    result.StatusCode,
		"data":    result.Data,
		"message": result.Message,
	}
}
