package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"tjbridge/internal/bridge"
	"tjbridge/internal/session"
	"tjbridge/pkg/types"
)

// HTTPError allows an error to carry its own HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

type statusError struct {
	code int
	msg  string
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) StatusCode() int { return e.code }

func badRequest(msg string) error { return statusError{code: http.StatusBadRequest, msg: msg} }
func notFound(msg string) error   { return statusError{code: http.StatusNotFound, msg: msg} }

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps bridge and session errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case bridge.IsInvalidInput(err), errors.Is(err, session.ErrNoSDKKey):
		return http.StatusBadRequest
	case bridge.IsNotLinked(err), errors.Is(err, bridge.ErrClosed):
		return http.StatusServiceUnavailable
	case bridge.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case bridge.IsNativeError(err):
		return http.StatusBadGateway
	case errors.Is(err, bridge.ErrCanceled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger().Warn().Err(err).Str("path", r.URL.Path).Int("status", status).
			Str("request_id", requestID(r)).Msg("request failed")
	}
	writeJSONError(w, status, err.Error())
}
