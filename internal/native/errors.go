package native

import (
	"errors"
	"strings"
)

// Platform families the bridge distinguishes.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// linkError is returned by every call when no native module is linked.
type linkError struct{ platform string }

func (e linkError) Error() string { return LinkingMessage(e.platform) }

// ErrNotLinked is the platform-neutral linkage error.
var ErrNotLinked error = linkError{}

// NewLinkError returns the linkage error with platform-specific hints.
func NewLinkError(platform string) error { return linkError{platform: platform} }

// LinkingMessage builds the linkage explanation. The iOS family gets the
// extra pod install hint.
func LinkingMessage(platform string) string {
	var b strings.Builder
	b.WriteString("The package 'tapjoy-react-native-sdk' doesn't seem to be linked. Make sure: \n\n")
	if strings.EqualFold(platform, PlatformIOS) {
		b.WriteString("- You have run 'pod install'\n")
	}
	b.WriteString("- You rebuilt the app after installing the package\n")
	b.WriteString("- You are not using Expo Go\n")
	return b.String()
}

// IsNotLinked reports whether err is (or wraps) the linkage error.
func IsNotLinked(err error) bool {
	var le linkError
	return errors.As(err, &le)
}

// Error is a failure reported by the native layer itself.
type Error struct {
	Method  string
	Code    string
	Message string
}

func (e *Error) Error() string {
	msg := "native " + e.Method + " failed"
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsNativeError reports whether err carries a native-reported failure.
func IsNativeError(err error) bool {
	var ne *Error
	return errors.As(err, &ne)
}

// errClosed is returned by transports after Close.
var errClosed = errors.New("native module closed")

// IsClosed reports whether err comes from a closed module.
func IsClosed(err error) bool { return errors.Is(err, errClosed) }
