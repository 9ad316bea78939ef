// Package boarderr defines the closed error taxonomy shared by every layer
// of the daemon, from the serial link up to the orchestrator. Callers
// compare with errors.Is; the orchestrator maps these to exit codes and
// display alerts.
package boarderr

import "errors"

// Sentinel errors forming the closed taxonomy. Wrap with fmt.Errorf("...: %w", Err)
// to attach context without losing the classification.
var (
	// ErrHardwareInitFailed means serial open, firmware handshake, or a
	// controller ack failed. Fatal at startup; the orchestrator has no
	// runtime retry and no degraded mode for it.
	ErrHardwareInitFailed = errors.New("boarderr: hardware init failed")

	// ErrLinkTimeout is transient: a request/response did not complete
	// within its deadline. The pump keeps running.
	ErrLinkTimeout = errors.New("boarderr: link timeout")

	// ErrInvalidFrame means the parser rejected bytes; the frame is
	// discarded and logged. Serial is idempotent for events, so this is
	// never fatal.
	ErrInvalidFrame = errors.New("boarderr: invalid frame")

	// ErrIllegalMove is recovered by entering correction mode. Never
	// surfaced as a fatal error.
	ErrIllegalMove = errors.New("boarderr: illegal move")

	// ErrPersistence means the embedded store could not be opened or
	// written. A failed move write is logged and not retried.
	ErrPersistence = errors.New("boarderr: persistence error")

	// ErrEngineFailed means a UCI engine process died unexpectedly.
	ErrEngineFailed = errors.New("boarderr: engine failed")

	// ErrTransport is a per-connection transport failure. Closes the
	// connection and returns control to the local controller.
	ErrTransport = errors.New("boarderr: transport error")

	// ErrConfig is fatal at startup only.
	ErrConfig = errors.New("boarderr: config error")
)

// ExitCode maps a startup-time error to the process exit code spec.md §6
// defines. Errors not covered here (transient runtime failures) should not
// reach main's exit path at all.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return 64
	case errors.Is(err, ErrHardwareInitFailed):
		return 70
	case errors.Is(err, ErrLinkTimeout), errors.Is(err, ErrTransport):
		return 75
	default:
		return 1
	}
}
