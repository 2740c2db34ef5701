package camera

import (
	"time"

	"github.com/acuvio/camlink/internal/sdk"
)

// Frame is one captured image. Data is owned by the frame and must not be
// mutated after delivery; when several sinks are registered they all receive
// the same Frame.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Format    sdk.PixelFormat
	Timestamp time.Time
	Seq       uint64
}

// FrameSink consumes streamed frames: display adapters, image capturers,
// recorders. Consume runs on the session's owner loop and must not block for
// long; implementations must not mutate the frame.
type FrameSink interface {
	Consume(*Frame) error
}

// FrameSinkFunc adapts a function to the FrameSink interface.
type FrameSinkFunc func(*Frame) error

func (f FrameSinkFunc) Consume(fr *Frame) error { return f(fr) }
