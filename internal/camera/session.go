package camera

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acuvio/camlink/internal/dispatch"
	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sdk"
)

// SessionState is the streaming state machine of one CameraSession.
type SessionState int32

const (
	// SessionIdle: no device bound.
	SessionIdle SessionState = iota
	// SessionOpened: device resolved, not streaming.
	SessionOpened
	// SessionStreaming: frame callback active.
	SessionStreaming
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionOpened:
		return "opened"
	case SessionStreaming:
		return "streaming"
	}
	return "unknown"
}

// SinkToken identifies one sink registration.
type SinkToken string

type sinkEntry struct {
	token SinkToken
	sink  FrameSink
}

// CameraSession owns at most one open device and drives its streaming state
// machine. Frames arriving on the driver's callback thread are copied into
// owned buffers and republished to the registered sinks on the owner loop,
// through a depth-1 mailbox: when the loop falls behind, an undelivered
// frame is replaced by the newer one rather than queued.
//
// State transitions and sink registration are expected from the owner loop
// or a single controlling goroutine; they are serialized internally either
// way.
type CameraSession struct {
	registry *DeviceRegistry
	loop     dispatch.Loop
	log      *zerolog.Logger

	mu     sync.Mutex
	state  SessionState
	device *OpenedDevice
	sinks  []sinkEntry

	// deliverMu is held for the full duration of one sink delivery pass.
	// Stop acquires it after deregistration as a barrier, so that no frame
	// reaches a sink after Stop returns.
	deliverMu sync.Mutex
	mb        frameMailbox
	seq       atomic.Uint64

	stateHandlers []func(SessionState)
	errorHandlers []func(error)
}

// NewCameraSession creates an idle session resolving devices through reg.
func NewCameraSession(reg *DeviceRegistry) *CameraSession {
	return &CameraSession{
		registry: reg,
		loop:     reg.runner.Loop(),
		log:      logger.WithComponent("camera-session"),
	}
}

// State returns the session's current state.
func (s *CameraSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the bound device's descriptor, or the zero descriptor when
// idle.
func (s *CameraSession) Device() DeviceDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return DeviceDescriptor{}
	}
	return s.device.Descriptor()
}

// Opened returns the bound device handle, or nil when idle. The handle stays
// owned by the session; callers must not Close it.
func (s *CameraSession) Opened() *OpenedDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// OnState registers a handler for state transitions, invoked on the owner
// loop.
func (s *CameraSession) OnState(fn func(SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateHandlers = append(s.stateHandlers, fn)
}

// OnError registers a handler for non-fatal frame-path errors, invoked on
// the owner loop.
func (s *CameraSession) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorHandlers = append(s.errorHandlers, fn)
}

// SetDevice binds the session to the device identified by desc, resolving it
// through the registry, or unbinds when desc is nil. Legal in Idle and
// Opened; a Streaming session must be stopped first (ErrInvalidState). The
// previously bound device, if any, is closed.
func (s *CameraSession) SetDevice(desc *DeviceDescriptor) error {
	s.mu.Lock()
	if s.state == SessionStreaming {
		s.mu.Unlock()
		return ErrInvalidState
	}
	prevState := s.state
	old := s.device
	s.device = nil
	s.state = SessionIdle
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Warn().Err(err).Str("device", old.Descriptor().ID).Msg("closing previous device failed")
		}
	}

	if desc == nil || desc.IsZero() {
		if prevState != SessionIdle {
			s.notifyState(SessionIdle)
		}
		return nil
	}

	dev, err := s.registry.Resolve(*desc)
	if err != nil {
		if prevState != SessionIdle {
			s.notifyState(SessionIdle)
		}
		return err
	}

	s.mu.Lock()
	s.device = dev
	s.state = SessionOpened
	s.mu.Unlock()
	s.log.Info().Str("device", desc.ID).Msg("device bound")
	s.notifyState(SessionOpened)
	return nil
}

// Start registers the frame callback and transitions to Streaming. Legal
// only in Opened; fails with ErrNoDevice from Idle. A Streaming session is
// left as is.
func (s *CameraSession) Start() error {
	s.mu.Lock()
	switch s.state {
	case SessionStreaming:
		s.mu.Unlock()
		return nil
	case SessionIdle:
		s.mu.Unlock()
		return ErrNoDevice
	}
	dev := s.device
	s.mb.reset()
	s.mu.Unlock()

	if err := dev.registerFrameCallback(s.handleFrame); err != nil {
		return fmt.Errorf("start streaming: %w", err)
	}

	s.mu.Lock()
	s.state = SessionStreaming
	s.mu.Unlock()
	s.log.Info().Str("device", dev.Descriptor().ID).Msg("streaming started")
	s.notifyState(SessionStreaming)
	return nil
}

// Stop deregisters the frame callback, discards any undelivered frame, and
// transitions back to Opened. When Stop returns, no further frame reaches
// any sink until the next Start: deregistration is synchronous and an
// in-flight delivery pass is waited out. Legal only in Streaming.
func (s *CameraSession) Stop() error {
	s.mu.Lock()
	if s.state != SessionStreaming {
		s.mu.Unlock()
		return ErrInvalidState
	}
	// Close the delivery gate before deregistering: a frame already posted
	// to the owner loop is discarded at delivery time.
	s.state = SessionOpened
	dev := s.device
	s.mu.Unlock()

	err := dev.unregisterFrameCallback()
	s.mb.drain()

	// Barrier: a delivery pass that was running when the gate closed has
	// finished once the lock is acquired.
	s.deliverMu.Lock()
	s.deliverMu.Unlock() //nolint:staticcheck // empty critical section is the barrier

	s.log.Info().Str("device", dev.Descriptor().ID).Msg("streaming stopped")
	s.notifyState(SessionOpened)
	if err != nil {
		return fmt.Errorf("stop streaming: %w", err)
	}
	return nil
}

// AddSink registers sink at the end of the delivery order and returns its
// registration token. Sinks registered while a frame is in flight only see
// later frames.
func (s *CameraSession) AddSink(sink FrameSink) (SinkToken, error) {
	if sink == nil {
		return "", fmt.Errorf("camera: nil sink")
	}
	token := SinkToken(uuid.NewString())
	s.mu.Lock()
	s.sinks = append(s.sinks, sinkEntry{token: token, sink: sink})
	s.mu.Unlock()
	return token, nil
}

// RemoveSink deregisters the sink identified by token. The sink receives no
// frame from any delivery pass that snapshots the list afterwards.
func (s *CameraSession) RemoveSink(token SinkToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.sinks {
		if e.token == token {
			s.sinks = append(s.sinks[:i], s.sinks[i+1:]...)
			return nil
		}
	}
	return ErrUnknownSink
}

// Feature returns a handle to the bound device's named feature, or
// ErrNoDevice when idle.
func (s *CameraSession) Feature(name string) (*FeatureHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return nil, ErrNoDevice
	}
	return s.device.Feature(name), nil
}

// Drops returns the number of frames replaced in the mailbox before
// delivery during the current streaming run.
func (s *CameraSession) Drops() uint64 { return s.mb.drops() }

// handleFrame runs on the driver's internal callback thread. The driver
// reclaims fd.Buffer as soon as we return, so the payload is copied into an
// owned frame here and handed to the mailbox.
func (s *CameraSession) handleFrame(fd sdk.FrameData) {
	data := make([]byte, len(fd.Buffer))
	copy(data, fd.Buffer)
	f := &Frame{
		Data:      data,
		Width:     fd.Width,
		Height:    fd.Height,
		Format:    fd.Format,
		Timestamp: fd.Timestamp,
		Seq:       s.seq.Add(1),
	}
	if s.mb.put(f) {
		if err := s.loop.Post(s.deliver); err != nil {
			s.mb.drain()
			s.log.Warn().Err(err).Msg("owner loop rejected frame delivery")
		}
	}
}

// deliver runs on the owner loop and fans the pending frame out to the sink
// list as snapshotted now, in registration order. A sink failure is reported
// through the error handlers and does not stop delivery to the remaining
// sinks.
func (s *CameraSession) deliver() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	f := s.mb.take()
	if f == nil {
		return
	}

	s.mu.Lock()
	if s.state != SessionStreaming {
		s.mu.Unlock()
		return
	}
	snapshot := make([]sinkEntry, len(s.sinks))
	copy(snapshot, s.sinks)
	s.mu.Unlock()

	for _, e := range snapshot {
		if err := e.sink.Consume(f); err != nil {
			s.reportError(&SinkConsumeError{Token: e.token, Err: err})
		}
	}
}

// reportError runs on the owner loop.
func (s *CameraSession) reportError(err error) {
	s.mu.Lock()
	handlers := make([]func(error), len(s.errorHandlers))
	copy(handlers, s.errorHandlers)
	s.mu.Unlock()
	if len(handlers) == 0 {
		s.log.Error().Err(err).Msg("frame delivery error")
		return
	}
	for _, fn := range handlers {
		fn(err)
	}
}

func (s *CameraSession) notifyState(state SessionState) {
	s.mu.Lock()
	handlers := make([]func(SessionState), len(s.stateHandlers))
	copy(handlers, s.stateHandlers)
	s.mu.Unlock()
	if len(handlers) == 0 {
		return
	}
	_ = s.loop.Post(func() {
		for _, fn := range handlers {
			fn(state)
		}
	})
}
