package httpapi

import (
	"errors"

	"healthguard/internal/alarm"
	"healthguard/internal/backend"
	"healthguard/internal/intake"
)

// Result is the envelope every JSON endpoint returns. Failures are still
// sent with HTTP 200; Code tells them apart.
//   - code: ResultSuccess on success, ResultError otherwise
//   - type: 'success' | 'error'
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// userErrors are the domain errors whose message is shown as is.
var userErrors = []struct {
	err     error
	message string
}{
	{intake.ErrNothingPending, "nothing to confirm"},
	{intake.ErrBusy, "scanner is busy"},
	{alarm.ErrAppointmentInPast, "appointment is in the past"},
	{backend.ErrNotFound, "medication not found"},
}

// FailFor maps err to a user-facing failure. known reports whether err was
// one of the domain errors; otherwise the envelope carries fallback and the
// caller should log err.
func FailFor(err error, fallback string) (res Result[any], known bool) {
	for _, u := range userErrors {
		if errors.Is(err, u.err) {
			return Fail(u.message), true
		}
	}
	return Fail(fallback), false
}
