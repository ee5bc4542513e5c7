// Package errs names the error kinds surfaced by duplicate detection and merging.
// Every kind is an httperror carrying its status code so handlers and the CLI
// can classify failures without string matching.
package errs

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// NotFound reports a provider id that no longer exists.
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, format, args...)
}

// InvalidInput reports a bad request: identical ids, incomplete or illegal resolution maps.
func InvalidInput(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusBadRequest, format, args...)
}

// Conflict reports a concurrent modification. Callers may retry after re-reading.
func Conflict(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusConflict, format, args...)
}

// Persistence reports a store failure.
func Persistence(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusInternalServerError, format, args...)
}

// PartialBatchFailure summarizes a batch where some items failed. It is
// informational: the batch itself still completed.
func PartialBatchFailure(failed, attempted int) error {
	return httperror.NewHTTPErrorf(http.StatusMultiStatus, "%d of %d merges failed", failed, attempted)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsInvalidInput(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsPartialBatchFailure(err error) bool {
	return hasStatus(err, http.StatusMultiStatus)
}

// StatusCode returns the status carried by err, or 500 for untyped errors.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if httperror.IsHTTPError(err) {
		return httperror.GetStatusCode(err)
	}
	return http.StatusInternalServerError
}

// Message returns the text of err without the status prefix httperror adds.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return httperror.ToHTTPError(err).Message
}

func hasStatus(err error, code int) bool {
	return err != nil && httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == code
}
