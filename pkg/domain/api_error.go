package common

import (
	"fmt"
)

// ApiErrorKind classifies the failure modes of the osu! api v1. The kind
// decides the recovery policy: ratelimits and transport failures are retried,
// an invalid key is fatal, an unavailable replay surfaces as a loaded replay
// without data.
type ApiErrorKind string

const (
	ApiErrorInvalidKey        ApiErrorKind = "InvalidKey"
	ApiErrorRatelimited       ApiErrorKind = "Ratelimited"
	ApiErrorReplayUnavailable ApiErrorKind = "ReplayUnavailable"
	ApiErrorInvalidJSON       ApiErrorKind = "InvalidJson"
	ApiErrorTransport         ApiErrorKind = "Transport"
	ApiErrorUnknown           ApiErrorKind = "Unknown"
)

// ApiError represents a structured osu! api error
type ApiError struct {
	Kind ApiErrorKind
	// Body holds the original response body for Unknown errors, so callers
	// can diagnose responses we were not prepared to handle.
	Body string
	Err  error
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("osu api: %s: %v", e.Kind, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("osu api: %s: %s", e.Kind, e.Body)
	}
	return fmt.Sprintf("osu api: %s", e.Kind)
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

// NewApiError creates a new api error
func NewApiError(kind ApiErrorKind, body string, err error) *ApiError {
	return &ApiError{Kind: kind, Body: body, Err: err}
}

// ApiErrorKindOf returns the kind of an api error, or an empty kind when the
// error is not an ApiError.
func ApiErrorKindOf(err error) ApiErrorKind {
	if apiErr, ok := err.(*ApiError); ok {
		return apiErr.Kind
	}
	return ""
}

// IsReplayUnavailableError checks if an error is a replay unavailable api error
func IsReplayUnavailableError(err error) bool {
	return ApiErrorKindOf(err) == ApiErrorReplayUnavailable
}

// IsInvalidKeyError checks if an error is an invalid key api error
func IsInvalidKeyError(err error) bool {
	return ApiErrorKindOf(err) == ApiErrorInvalidKey
}

// IsRatelimitedError checks if an error is a ratelimited api error
func IsRatelimitedError(err error) bool {
	return ApiErrorKindOf(err) == ApiErrorRatelimited
}
