package router

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kennelworks/kennel-api/internal/log"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"github.com/kennelworks/kennel-api/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BindErrorResult(err, &payload)
			}
			return OKResult(payload, "ok")
		})

		rs.AddPatchHandler(c, nil, "items/:id", func(ctx *RequestContext) *ServiceResult {
			id, errResult := ParseUUIDParam(ctx, "id")
			if errResult != nil {
				return errResult
			}
			return OKResult(id, "ok")
		})

		rs.AddDeleteHandler(c, nil, "missing", func(ctx *RequestContext) *ServiceResult {
			return AppErrorResult(apperrors.NewNotFoundError("item not found", nil))
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T, cfg RouterConfig) *RouterService {
	t.Helper()

	if cfg.RateLimitRequests == 0 {
		cfg.RateLimitRequests = 1000
		cfg.RateLimitWindow = time.Minute
	}
	cfg.RequestTimeout = 5 * time.Second

	rs := CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &cfg)
	t.Cleanup(rs.Cleanup)
	return rs
}

func serve(rs *RouterService, req *http.Request) (*httptest.ResponseRecorder, testResponse) {
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	var resp testResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestTrustedProxies_DisabledByDefault(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w, resp := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"10.0.0.2"`, string(resp.Data))
}

func TestTrustedProxies_StarTrustsForwardedFor(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{TrustedProxies: []string{"*"}})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w, resp := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"1.1.1.1"`, string(resp.Data))
}

func TestMaxBodySize_Returns413(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{MaxBodyBytes: 10})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(bytes.Repeat([]byte{'a'}, 50)))
	req.Header.Set("Content-Type", "application/json")

	w, _ := serve(rs, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORS_PreflightAllowsPatchForKnownOrigin(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{AllowedOrigins: []string{"https://admin.example.com"}})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodOptions, "/items/abc", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)

	w, _ := serve(rs, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestCORS_UnknownOriginGetsNoHeaders(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{AllowedOrigins: []string{"https://admin.example.com"}})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	w, _ := serve(rs, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHSTS_OnlyOverHTTPS(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{HSTS: HSTSConfig{Enabled: true, IncludeSubdomains: true}})
	mountTestController(rs)

	plain := httptest.NewRequest(http.MethodGet, "/ip", nil)
	w, _ := serve(rs, plain)
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	proxied := httptest.NewRequest(http.MethodGet, "/ip", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	w, _ = serve(rs, proxied)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestCorrelationID_EchoedOrGenerated(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set(CorrelationIDHeader, "trace-me")
	w, _ := serve(rs, req)
	assert.Equal(t, "trace-me", w.Header().Get(CorrelationIDHeader))

	w, _ = serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	assert.Len(t, w.Header().Get(CorrelationIDHeader), 36)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	w, resp := serve(rs, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", resp.Message)

	w, _ = serve(rs, httptest.NewRequest(http.MethodPut, "/ip", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestParseUUIDParam(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	w, resp := serve(rs, httptest.NewRequest(http.MethodPatch, "/items/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(resp.Data), apperrors.ErrorTypeInvalidRequest)

	id := "0b8f6a57-3c1e-4f4e-9a55-6d2f2f6f7c11"
	w, resp = serve(rs, httptest.NewRequest(http.MethodPatch, "/items/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"`+id+`"`, string(resp.Data))
}

func TestAppErrorResult_MapsKindAndStatus(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	w, resp := serve(rs, httptest.NewRequest(http.MethodDelete, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "item not found", resp.Message)

	var payload apperrors.ErrorPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.Equal(t, apperrors.ErrorTypeNotFound, payload.Kind)
}

func TestBindErrorResult_MalformedJSON(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")

	w, resp := serve(rs, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", resp.Message)
}

func TestRateLimit_HandlerOverrideWinsOverController(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})

	ctrl := NewVersionedRESTController("Limited", "v1", "/limited", func(rs *RouterService, c *RESTController) {
		ok := func(*RequestContext) *ServiceResult { return OKResult(nil, "ok") }
		rs.AddGetHandler(c, nil, "loose", ok)
		rs.AddGetHandler(c, ratelimit.NewInMemoryRateLimiter(1, time.Minute), "strict", ok)
	})
	ctrl.RateLimitWith(rs, ratelimit.NewInMemoryRateLimiter(3, time.Minute))
	rs.MountController(ctrl)

	statuses := func(path string, n int) []int {
		out := make([]int, 0, n)
		for i := 0; i < n; i++ {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "10.9.9.9:1000"
			w, _ := serve(rs, req)
			out = append(out, w.Code)
		}
		return out
	}

	assert.Equal(t, []int{200, 429}, statuses("/v1/limited/strict", 2))
	assert.Equal(t, []int{200, 200, 200, 429}, statuses("/v1/limited/loose", 4))
}

func TestRateLimit_RejectionHeaders(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})
	mountTestController(rs)

	first, _ := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second, _ := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestMetrics_ExposedWhenEnabled(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{MetricsEnabled: true})
	mountTestController(rs)

	serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kennel_http_requests_total")
}

func TestMetrics_AbsentWhenDisabled(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})

	w, _ := serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	assert.Panics(t, func() {
		rs.MountController(NewRESTController("Again", "/", func(rs *RouterService, c *RESTController) {
			rs.AddGetHandler(c, nil, "ip", func(*RequestContext) *ServiceResult { return nil })
		}))
	})
}

func TestGzip_CompressesLargeResponsesWhenEnabled(t *testing.T) {
	body, err := json.Marshal(map[string]string{"notes": strings.Repeat("puppy ", 500)})
	require.NoError(t, err)

	send := func(rs *RouterService) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		rs.server.Handler.ServeHTTP(w, req)
		return w
	}

	enabled := newTestRouterService(t, RouterConfig{Gzip: true})
	mountTestController(enabled)
	w := send(enabled)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "puppy puppy")

	disabled := newTestRouterService(t, RouterConfig{})
	mountTestController(disabled)
	assert.Empty(t, send(disabled).Header().Get("Content-Encoding"))
}
