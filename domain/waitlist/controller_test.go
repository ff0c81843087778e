package waitlist

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kennelworks/kennel-api/config/router"
	"github.com/kennelworks/kennel-api/internal/log"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const entryID = "0b8f6a57-3c1e-4f4e-9a55-6d2f2f6f7c11"

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, service WaitlistService, requireAdmin router.MiddlewareFunc) *gin.Engine {
	t.Helper()

	rs := router.CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewWaitlistController(ControllerConfig{
		Service:          service,
		RequireAdmin:     requireAdmin,
		SignupsPerMinute: 2,
	}))
	return rs.GetEngine()
}

func allowAll(c *gin.Context) { c.Next() }

func denyAll(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, router.UnauthorizedResult("Authentication required").ToJSON())
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.1.1:5000"

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestController_CreateReturns201WithPosition(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockWaitlistService(ctrl)
	engine := newTestRouter(t, mockService, denyAll)

	mockService.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, req *CreateWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
			assert.Equal(t, "Jane", req.FirstName)
			return &WaitlistEntryResponse{ID: entryID, FirstName: "Jane", Position: 3, Status: "waiting"}, nil
		},
	)

	w, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", map[string]any{
		"first_name":   "Jane",
		"last_name":    "Doe",
		"phone_number": "(555) 867-5309",
		"position":     1,
		"status":       "completed",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var entry WaitlistEntryResponse
	require.NoError(t, json.Unmarshal(resp.Data, &entry))
	assert.Equal(t, 3, entry.Position)
}

func TestController_CreateClosedReturnsKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockWaitlistService(ctrl)
	engine := newTestRouter(t, mockService, denyAll)

	mockService.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.NewWaitlistClosedError("The waitlist is currently closed"))

	w, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", map[string]any{"first_name": "Jane"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var payload apperrors.ErrorPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.Equal(t, apperrors.ErrorTypeWaitlistClosed, payload.Kind)
}

func TestController_CreateMalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := newTestRouter(t, NewMockWaitlistService(ctrl), denyAll)

	w, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", map[string]any{"first_name": 42})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var payload apperrors.ErrorPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.Equal(t, apperrors.ErrorTypeValidation, payload.Kind)
}

func TestController_SignupIsRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockWaitlistService(ctrl)
	engine := newTestRouter(t, mockService, denyAll)

	mockService.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).
		Return(&WaitlistEntryResponse{ID: entryID}, nil).Times(2)

	body := map[string]any{"first_name": "Jane", "last_name": "Doe", "phone_number": "(555) 867-5309"}
	for i := 0; i < 2; i++ {
		w, _ := doJSON(t, engine, http.MethodPost, "/v1/waitlist", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, _ := doJSON(t, engine, http.MethodPost, "/v1/waitlist", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestController_AdminRoutesRequireCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := newTestRouter(t, NewMockWaitlistService(ctrl), denyAll)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/waitlist"},
		{http.MethodGet, "/v1/waitlist/" + entryID},
		{http.MethodPatch, "/v1/waitlist/" + entryID},
		{http.MethodDelete, "/v1/waitlist/" + entryID},
	} {
		w, _ := doJSON(t, engine, tc.method, tc.path, map[string]any{"notes": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestController_PatchIgnoresImmutableKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockWaitlistService(ctrl)
	engine := newTestRouter(t, mockService, allowAll)

	mockService.EXPECT().UpdateEntry(gomock.Any(), entryID, gomock.Any()).DoAndReturn(
		func(_ any, _ string, req *UpdateWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
			require.NotNil(t, req.Status)
			assert.Equal(t, "contacted", *req.Status)
			assert.Nil(t, req.Notes)
			return &WaitlistEntryResponse{ID: entryID, Status: "contacted", Position: 1}, nil
		},
	)

	w, _ := doJSON(t, engine, http.MethodPatch, "/v1/waitlist/"+entryID, map[string]any{
		"status":       "contacted",
		"position":     9,
		"first_name":   "Mallory",
		"phone_number": "(000) 000-0000",
		"created_at":   "2001-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestController_DeleteUnknownIs404(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockWaitlistService(ctrl)
	engine := newTestRouter(t, mockService, allowAll)

	mockService.EXPECT().DeleteEntry(gomock.Any(), entryID).
		Return(nil, apperrors.NewNotFoundError("waitlist entry not found", nil))

	w, resp := doJSON(t, engine, http.MethodDelete, "/v1/waitlist/"+entryID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "waitlist entry not found", resp.Message)
}

func TestController_InvalidIDIs400(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := newTestRouter(t, NewMockWaitlistService(ctrl), allowAll)

	w, _ := doJSON(t, engine, http.MethodDelete, "/v1/waitlist/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_StorageErrorHidesInternals(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockWaitlistService(ctrl)
	engine := newTestRouter(t, mockService, allowAll)

	mockService.EXPECT().ListEntries(gomock.Any()).
		Return(nil, apperrors.NewStorageError("unable to fetch waitlist entries", assert.AnError))

	w, resp := doJSON(t, engine, http.MethodGet, "/v1/waitlist", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, string(resp.Data), assert.AnError.Error())
	assert.Contains(t, string(resp.Data), apperrors.ErrorTypeStorageError)
}
