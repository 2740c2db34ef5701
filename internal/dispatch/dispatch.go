// Package dispatch provides the single-threaded owner execution context that
// camera state transitions and sink delivery are serialized on. Two bindings
// are available: a pure-Go channel loop and a GLib main-loop adapter. The
// binding is chosen once at process start, either explicitly or by probing
// in a fixed preference order.
package dispatch

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvBinding selects the loop binding; values are matched case-insensitively.
const EnvBinding = "CAMLINK_DISPATCHER"

var (
	// ErrStopped is returned by Post once the loop is no longer running.
	ErrStopped = errors.New("dispatch: loop is not running")

	// ErrUnknownBinding is returned for an unrecognized selector value.
	ErrUnknownBinding = errors.New("dispatch: unknown loop binding")
)

// Loop is a serialized execution context. Callables handed to Post run one
// at a time, in post order, on the loop's goroutine.
type Loop interface {
	// Start begins processing posted callables. Calling Start on a running
	// loop is a no-op.
	Start() error

	// Stop shuts the loop down and returns once the loop goroutine has
	// exited. Callables posted but not yet run are discarded.
	Stop() error

	// Post enqueues fn for execution on the loop.
	Post(fn func()) error

	IsRunning() bool
	Name() string
}

// bindings in auto-detection preference order.
var bindings = []struct {
	name      string
	available func() bool
	construct func() Loop
}{
	{"glib", glibAvailable, func() Loop { return NewGLibLoop() }},
	{"native", func() bool { return true }, func() Loop { return NewNativeLoop() }},
}

// Select resolves a binding name to a loop. An empty name auto-detects by
// probing the bindings in preference order.
func Select(name string) (Loop, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		for _, b := range bindings {
			if b.available() {
				return b.construct(), nil
			}
		}
		return nil, fmt.Errorf("%w: no binding available", ErrUnknownBinding)
	}
	for _, b := range bindings {
		if b.name == name {
			if !b.available() {
				return nil, fmt.Errorf("%w: %q is not available", ErrUnknownBinding, name)
			}
			return b.construct(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBinding, name)
}

// FromEnv selects the binding named by EnvBinding, auto-detecting when the
// variable is unset.
func FromEnv() (Loop, error) {
	return Select(os.Getenv(EnvBinding))
}
