package protocol

import (
	"fmt"
)

// Error is a custom error for the host protocol which contains information
// about the responsible stage in which it occurred.
type Error struct {
	// Stage is the protocol stage that failed.
	Stage Stage
	// Err is the underlying error.
	Err error
}

// Error implement error.
func (e Error) Error() string {
	return fmt.Sprintf("protocol: stage %s: %s", e.Stage, e.Err)
}

// Unwrap implement errors.Wrapper.
func (e Error) Unwrap() error {
	return e.Err
}
