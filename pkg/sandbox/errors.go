package sandbox

import (
	"errors"
	"fmt"
)

// Error categories for the sandbox layer. Messages are category names only so
// they are safe to hand to an untrusted caller as-is.
var (
	ErrInvalidInput    = errors.New("INVALID_INPUT")
	ErrOutsideSandbox  = errors.New("OUTSIDE_SANDBOX")
	ErrSymlinkRejected = errors.New("SYMLINK_REJECTED")
	ErrToolFailure     = errors.New("TOOL_FAILURE")
	ErrOutputTooLarge  = errors.New("OUTPUT_TOO_LARGE")
)

// ToolError carries the detail of a failed external invocation.
// Detail may contain host paths; pass it through SanitizeError before it
// leaves the process.
type ToolError struct {
	Tool   string
	Detail string
}

func (e *ToolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrToolFailure.Error(), e.Tool)
	}
	return fmt.Sprintf("%s: %s: %s", ErrToolFailure.Error(), e.Tool, e.Detail)
}

func (e *ToolError) Unwrap() error {
	return ErrToolFailure
}

// Category returns the sentinel an error belongs to, or nil when err is not
// one of the sandbox categories.
func Category(err error) error {
	for _, sentinel := range []error{
		ErrInvalidInput,
		ErrOutsideSandbox,
		ErrSymlinkRejected,
		ErrOutputTooLarge,
		ErrToolFailure,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func invalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
