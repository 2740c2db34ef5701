package camera

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/acuvio/camlink/internal/dispatch"
	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sdk"
)

// RunnerState is the lifecycle state of the driver instance.
type RunnerState int32

const (
	RunnerNotStarted RunnerState = iota
	RunnerRunning
	RunnerStopped
)

func (s RunnerState) String() string {
	switch s {
	case RunnerNotStarted:
		return "not-started"
	case RunnerRunning:
		return "running"
	case RunnerStopped:
		return "stopped"
	}
	return "unknown"
}

// The driver instance is a single process-wide resource; only one runner may
// hold it at a time.
var (
	instanceMu   sync.Mutex
	activeRunner *InstanceRunner
)

// InstanceRunner owns the vendor driver instance. The instance is
// initialized on a dedicated goroutine whose OS thread stays locked for the
// instance's lifetime, because the driver binds its internal event loop to
// the thread that created it. All registry and session operations require
// the runner to be Running.
type InstanceRunner struct {
	drv  sdk.Driver
	loop dispatch.Loop
	log  *zerolog.Logger

	mu          sync.Mutex
	state       RunnerState
	quit        chan struct{}
	done        chan struct{}
	registry    *DeviceRegistry
	stopTimeout time.Duration
}

// NewInstanceRunner creates a runner over drv whose notifications are
// delivered on loop.
func NewInstanceRunner(drv sdk.Driver, loop dispatch.Loop) *InstanceRunner {
	return &InstanceRunner{
		drv:         drv,
		loop:        loop,
		log:         logger.WithComponent("instance-runner"),
		stopTimeout: 5 * time.Second,
	}
}

// SetStopTimeout bounds the synchronous wait in Stop.
func (r *InstanceRunner) SetStopTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimeout = d
}

// Start initializes the driver instance and transitions to Running. It is a
// no-op when this runner is already Running and fails with
// ErrAlreadyRunning when a different runner holds the instance. An
// initialization failure leaves the runner at NotStarted so a retry is
// possible.
func (r *InstanceRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RunnerRunning {
		return nil
	}

	instanceMu.Lock()
	if activeRunner != nil && activeRunner != r {
		instanceMu.Unlock()
		return ErrAlreadyRunning
	}
	activeRunner = r
	instanceMu.Unlock()

	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	initErr := make(chan error, 1)
	go r.run(r.quit, r.done, initErr)

	if err := <-initErr; err != nil {
		r.releaseInstance()
		r.state = RunnerNotStarted
		r.log.Error().Err(err).Msg("driver instance initialization failed")
		return err
	}
	r.state = RunnerRunning
	r.log.Info().Msg("driver instance running")
	return nil
}

// run hosts the driver instance. The OS thread is locked because the
// instance must be torn down from the thread that created it.
func (r *InstanceRunner) run(quit, done chan struct{}, initErr chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	if err := r.drv.InitInstance(); err != nil {
		initErr <- err
		return
	}
	r.drv.RegisterChangeHandler(r.handleChange)
	initErr <- nil

	// The driver pumps its internal event loop on this thread while we park.
	<-quit

	r.drv.UnregisterChangeHandler()
	if err := r.drv.ShutdownInstance(); err != nil {
		r.log.Error().Err(err).Msg("driver instance shutdown failed")
	}
}

// Stop tears the driver instance down. It refuses with ErrBusy while any
// resolved device is still open, returns ErrShutdownTimeout when teardown
// exceeds the bounded wait, and is a no-op when not Running.
func (r *InstanceRunner) Stop() error {
	r.mu.Lock()
	if r.state != RunnerRunning {
		r.mu.Unlock()
		return nil
	}
	if r.registry != nil && r.registry.openCount() > 0 {
		r.mu.Unlock()
		return ErrBusy
	}
	if r.quit != nil {
		close(r.quit)
		r.quit = nil
	}
	done := r.done
	timeout := r.stopTimeout
	r.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}

	r.mu.Lock()
	r.state = RunnerStopped
	r.mu.Unlock()
	r.releaseInstance()
	r.log.Info().Msg("driver instance stopped")
	return nil
}

func (r *InstanceRunner) releaseInstance() {
	instanceMu.Lock()
	if activeRunner == r {
		activeRunner = nil
	}
	instanceMu.Unlock()
}

// State returns the runner's lifecycle state.
func (r *InstanceRunner) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsRunning reports whether the driver instance is up.
func (r *InstanceRunner) IsRunning() bool { return r.State() == RunnerRunning }

// Loop returns the owner execution context.
func (r *InstanceRunner) Loop() dispatch.Loop { return r.loop }

// handleChange relays a driver hot-plug notification, arriving on the
// driver's internal thread, onto the owner loop.
func (r *InstanceRunner) handleChange(ev sdk.ChangeEvent, info sdk.DeviceInfo) {
	r.mu.Lock()
	reg := r.registry
	r.mu.Unlock()
	if reg == nil {
		return
	}
	if err := r.loop.Post(func() { reg.applyChange(ev, info) }); err != nil {
		r.log.Warn().Err(err).Str("device", info.ID).Msg("dropped hot-plug notification")
	}
}

func (r *InstanceRunner) setRegistry(reg *DeviceRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry = reg
}
