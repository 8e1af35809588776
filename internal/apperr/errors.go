// Package apperr classifies every terminal request outcome into a status
// code and a caller-facing body. Bodies never carry upstream text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"enma/internal/domain"
)

// Admission-layer rejections.
var (
	ErrRequestTimeout   = errors.New("request timeout elapsed")
	ErrRateLimitTimeout = errors.New("rate limit token not acquired in time")
	ErrOverloaded       = errors.New("admission queue full")
)

// ErrNullMetric means the provider answered but the requested column was
// absent or null.
var ErrNullMetric = errors.New("metric value is null")

// UpstreamError is an error message reported by the provider in place of results.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "upstream error: " + e.Message
}

// Transport operations.
const (
	OpBuild  = "build"
	OpSend   = "send"
	OpDecode = "decode"
)

// TransportError is any failure to obtain a parseable answer from the provider.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var (
	timeoutBody    = domain.ErrorResponse{Code: http.StatusRequestTimeout, Error: "request time out"}
	overloadedBody = domain.ErrorResponse{Code: http.StatusServiceUnavailable, Error: "service unavailable"}
	internalBody   = domain.ErrorResponse{Code: http.StatusInternalServerError, Error: "unhandled internal error"}
)

// Cause is a stable label for err, suitable for logs and metric labels.
func Cause(err error) string {
	var upstream *UpstreamError
	var transport *TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRequestTimeout):
		return "request_timeout"
	case errors.Is(err, ErrRateLimitTimeout):
		return "rate_limit_timeout"
	case errors.Is(err, ErrOverloaded):
		return "overloaded"
	case errors.Is(err, ErrNullMetric):
		return "null_metric"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.As(err, &transport):
		return "transport_error"
	default:
		return "internal"
	}
}

// Status maps err to the HTTP status returned to the caller.
func Status(err error) int {
	var transport *TransportError
	switch Cause(err) {
	case "ok":
		return http.StatusOK
	case "request_timeout", "rate_limit_timeout":
		return http.StatusRequestTimeout
	case "overloaded":
		return http.StatusServiceUnavailable
	case "null_metric":
		return http.StatusNotFound
	case "upstream_error":
		return http.StatusBadGateway
	case "transport_error":
		if errors.As(err, &transport) && transport.Op == OpBuild {
			return http.StatusInternalServerError
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRejection reports whether err was raised by an admission layer rather
// than by the metric lookup itself.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRequestTimeout) ||
		errors.Is(err, ErrRateLimitTimeout) ||
		errors.Is(err, ErrOverloaded)
}

// Response returns the status and body for err. Domain outcomes use the
// zero metric envelope, admission rejections and unknown failures use the
// fixed error bodies.
func Response(err error) (int, any) {
	status := Status(err)
	switch {
	case IsRejection(err) && status == http.StatusRequestTimeout:
		return status, timeoutBody
	case IsRejection(err):
		return status, overloadedBody
	case Cause(err) == "internal":
		return status, internalBody
	default:
		return status, domain.NewMetricResponse(0)
	}
}
