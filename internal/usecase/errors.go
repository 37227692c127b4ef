package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"leadgen-agent/internal/credential"
)

type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorInvalidState      ErrorCode = "INVALID_STATE"
	ErrorNotFound          ErrorCode = "NOT_FOUND"
	ErrorMissingCredential ErrorCode = "MISSING_CREDENTIAL"
	ErrorAuthFailed        ErrorCode = "AUTH_FAILED"
	ErrorRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// ErrorInternal when there is none.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ErrorInternal
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// entityNotFound is the generation service's message for a key that cannot
// see the requested model.
const entityNotFound = "Requested entity was not found"

// generationError classifies a failed call to the generation collaborator.
// step prefixes the reason, e.g. "scan" gives "scan_rate_limited".
func generationError(step string, err error) *Error {
	if errors.Is(err, credential.ErrMissing) {
		return newError(ErrorMissingCredential, "api_key_missing", err)
	}
	if strings.Contains(err.Error(), entityNotFound) {
		return newError(ErrorAuthFailed, "api_key_rejected", err)
	}
	if status, ok := upstreamStatusCode(err); ok {
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return newError(ErrorAuthFailed, "api_key_rejected", err)
		case http.StatusTooManyRequests:
			return newError(ErrorRateLimited, step+"_rate_limited", err)
		}
	}
	return newError(ErrorUpstream, step+"_error", err)
}
