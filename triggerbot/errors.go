package triggerbot

import (
	"errors"
	"fmt"

	"tracetrigger/process"
)

var (
	// ErrNoCapture is returned when the trace instruction did not execute during the capture window.
	ErrNoCapture = errors.New("no register values captured")

	// ErrRoundNotInitialized is returned when toggling before a round was initialized.
	ErrRoundNotInitialized = errors.New("round not initialized")
)

// AmbiguousCaptureError is returned when the trace instruction executed for
// more than one object during the capture window.
type AmbiguousCaptureError struct {
	Values []uint64
}

func (e *AmbiguousCaptureError) Error() string {
	return fmt.Sprintf("captured %d distinct register values", len(e.Values))
}

// ReactionError is a failed button injection. It ends the run loop.
type ReactionError struct {
	Action process.ButtonAction
	Err    error
}

func (e *ReactionError) Error() string {
	return fmt.Sprintf("failed to inject button %s: %v", e.Action, e.Err)
}

func (e *ReactionError) Unwrap() error {
	return e.Err
}
