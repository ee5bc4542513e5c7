package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/errs"
)

func newEcho() *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	return e
}

func TestContext_PropagatesHeaders(t *testing.T) {
	e := newEcho()
	e.GET("/whoami", func(c echo.Context) error {
		ctx := c.Request().Context()
		return c.JSON(http.StatusOK, map[string]string{
			"request_id": context.GetRequestID(ctx),
			"user_id":    context.GetUserID(ctx),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	req.Header.Set(HeaderUserID, "op-7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "op-7", body["user_id"])
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
}

func TestContext_SanitizesHeaders(t *testing.T) {
	e := newEcho()
	e.GET("/providers/:id", func(c echo.Context) error {
		ctx := c.Request().Context()
		return c.JSON(http.StatusOK, map[string]string{
			"request_id": context.GetRequestID(ctx),
			"route":      context.GetRoute(ctx),
			"user_id":    context.GetUserID(ctx),
		})
	})

	tests := []struct {
		name      string
		requestID string
		userID    string
		keepID    bool
		wantUser  string
	}{
		{name: "valid id kept", requestID: "req-42", userID: "  op-7 ", keepID: true, wantUser: "op-7"},
		{name: "id with spaces replaced", requestID: "req 42", userID: "op-7", wantUser: "op-7"},
		{name: "oversized id replaced", requestID: strings.Repeat("r", 65), userID: "", wantUser: ""},
		{name: "oversized user truncated", requestID: "req-43", userID: strings.Repeat("u", 200), keepID: true, wantUser: strings.Repeat("u", 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/providers/0b8e8c2a", nil)
			req.Header.Set(echo.HeaderXRequestID, tt.requestID)
			req.Header.Set(HeaderUserID, tt.userID)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.keepID {
				assert.Equal(t, tt.requestID, body["request_id"])
			} else {
				assert.NotEqual(t, tt.requestID, body["request_id"])
				assert.NotEmpty(t, body["request_id"])
			}
			assert.Equal(t, body["request_id"], rec.Header().Get(echo.HeaderXRequestID))
			assert.Equal(t, "/providers/:id", body["route"])
			assert.Equal(t, tt.wantUser, body["user_id"])
		})
	}
}

func TestContext_GeneratesRequestID(t *testing.T) {
	e := newEcho()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestError_MapsStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{name: "not found", err: errs.NotFound("provider %s not found", "x"), code: http.StatusNotFound, message: "provider x not found"},
		{name: "invalid input", err: errs.InvalidInput("bad"), code: http.StatusBadRequest, message: "bad"},
		{name: "conflict", err: errs.Conflict("stale"), code: http.StatusConflict, message: "stale"},
		{name: "persistence", err: errs.Persistence("db down"), code: http.StatusInternalServerError, message: "db down"},
		{name: "echo error", err: echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), code: http.StatusMethodNotAllowed, message: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			e.GET("/fail", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}
