package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"tjbridge/internal/bridge"
	"tjbridge/internal/native"
	"tjbridge/internal/session"
)

func TestStatusFor_BridgeErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", fmt.Errorf("spend: %w", bridge.ErrInvalidAmount), http.StatusBadRequest},
		{"no key", session.ErrNoSDKKey, http.StatusBadRequest},
		{"not linked", native.NewLinkError(native.PlatformAndroid), http.StatusServiceUnavailable},
		{"closed", bridge.ErrClosed, http.StatusServiceUnavailable},
		{"op timeout", bridge.ErrOperationTimeout, http.StatusGatewayTimeout},
		{"call timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"native", &native.Error{Method: "connect", Code: "E"}, http.StatusBadGateway},
		{"canceled", bridge.ErrCanceled, http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := statusFor(c.err); got != c.want {
				t.Fatalf("statusFor=%d want %d", got, c.want)
			}
		})
	}
}
