package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/context"
)

// HeaderUserID carries the operator performing the request. It is recorded as
// performed_by on merge audit entries.
const HeaderUserID = "X-User-ID"

const (
	maxRequestIDLength = 64
	maxUserIDLength    = 128
)

// Context stores the request id, route template and operator id on the request context.
// Client supplied request ids are kept only when they are short and printable.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if !validRequestID(requestID) {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			// the route template keeps provider ids out of log fields
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}

			ctx := context.SetRequestID(req.Context(), requestID)
			ctx = context.SetRoute(ctx, route)
			ctx = context.SetUserID(ctx, operatorID(req.Header.Get(HeaderUserID)))
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

func operatorID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > maxUserIDLength {
		id = id[:maxUserIDLength]
	}
	return id
}
