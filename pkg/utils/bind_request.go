package utils

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/errs"
)

// BindRequest decodes the request into T and runs its validate tags.
// Both failures come back as errs.InvalidInput so the error middleware answers 400.
func BindRequest[T any](c echo.Context) (T, error) {
	var v T

	if err := c.Bind(&v); err != nil {
		return v, errs.InvalidInput("malformed request body: %s", bindMessage(err))
	}

	if _, err := Validate(v); err != nil {
		return v, errs.InvalidInput("%s", err.Error())
	}

	return v, nil
}

// bindMessage drops echo's "code=400, message=" wrapping
func bindMessage(err error) string {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return err.Error()
	}
	if he.Internal != nil {
		return he.Internal.Error()
	}
	return fmt.Sprint(he.Message)
}
