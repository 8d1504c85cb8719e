package bridge

import (
	"errors"
	"fmt"

	"tjbridge/internal/native"
)

// invalidInputError rejects caller input before any native call is made.
type invalidInputError struct {
	what  string
	value any
}

func (e invalidInputError) Error() string {
	if e.value == nil {
		return "invalid " + e.what
	}
	return fmt.Sprintf("invalid %s: %v", e.what, e.value)
}

// Is matches the sentinel of the same kind regardless of the offending value.
func (e invalidInputError) Is(target error) bool {
	t, ok := target.(invalidInputError)
	return ok && t.what == e.what && t.value == nil
}

var (
	// ErrInvalidAmount rejects negative, NaN, infinite or non-numeric amounts.
	ErrInvalidAmount error = invalidInputError{what: "amount"}
	// ErrInvalidEntryPoint rejects names outside the entry point enumeration.
	ErrInvalidEntryPoint error = invalidInputError{what: "entry point"}
	// ErrInvalidSegment rejects codes outside the segment enumeration.
	ErrInvalidSegment error = invalidInputError{what: "segment"}
	// ErrInvalidPlacement rejects an empty placement name.
	ErrInvalidPlacement error = invalidInputError{what: "placement name"}
)

func invalid(sentinel error, value any) error {
	ie := sentinel.(invalidInputError)
	return invalidInputError{what: ie.what, value: value}
}

// IsInvalidInput reports whether err was raised by local validation.
func IsInvalidInput(err error) bool {
	var ie invalidInputError
	return errors.As(err, &ie)
}

var (
	// ErrOperationTimeout ends an operation whose terminal event never came.
	ErrOperationTimeout = errors.New("operation timed out waiting for native event")
	// ErrCanceled ends an operation canceled by its caller.
	ErrCanceled = errors.New("operation canceled")
	// ErrClosed is returned once the client has been closed.
	ErrClosed = errors.New("bridge client closed")
)

// IsTimeout reports whether an operation ended without its terminal event.
func IsTimeout(err error) bool { return errors.Is(err, ErrOperationTimeout) }

// IsNotLinked reports whether err is the native linkage error.
func IsNotLinked(err error) bool { return native.IsNotLinked(err) }

// IsNativeError reports whether err was reported by the native SDK.
func IsNativeError(err error) bool { return native.IsNativeError(err) }
