package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrRunnerNotReady is returned when an operation requires a Running
	// instance runner.
	ErrRunnerNotReady = errors.New("camera: instance runner is not running")

	// ErrAlreadyRunning is returned when a second runner attempts to claim
	// the process-wide driver instance.
	ErrAlreadyRunning = errors.New("camera: another instance runner is already running")

	// ErrBusy blocks instance teardown while sessions hold open devices.
	ErrBusy = errors.New("camera: open devices exist; close sessions first")

	ErrDeviceNotFound = errors.New("camera: device not found")
	ErrDeviceBusy     = errors.New("camera: device is already open")

	// ErrInvalidState is returned for an illegal session state transition.
	ErrInvalidState = errors.New("camera: operation not legal in current state")

	// ErrNoDevice is returned by Start on a session with no bound device.
	ErrNoDevice = errors.New("camera: no device bound to session")

	ErrFeatureUnavailable = errors.New("camera: feature unavailable")
	ErrFeatureRange       = errors.New("camera: feature value out of range")
	ErrFeatureType        = errors.New("camera: feature value type mismatch")

	// ErrShutdownTimeout is returned when a synchronous teardown exceeds its
	// bounded wait.
	ErrShutdownTimeout = errors.New("camera: shutdown timed out")

	// ErrUnknownSink is returned when removing a sink token that is not
	// registered.
	ErrUnknownSink = errors.New("camera: unknown sink token")
)

// SinkConsumeError wraps a failure from one sink's Consume call. It is
// reported through the session's error handlers and never interrupts
// delivery to the remaining sinks.
type SinkConsumeError struct {
	Token SinkToken
	Err   error
}

func (e *SinkConsumeError) Error() string {
	return fmt.Sprintf("camera: sink %s failed to consume frame: %v", e.Token, e.Err)
}

func (e *SinkConsumeError) Unwrap() error { return e.Err }
