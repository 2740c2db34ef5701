package sink

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/logger"
)

// CaptureResult reports the outcome of a one-shot capture.
type CaptureResult struct {
	Path string
	Err  error
}

// ImageCapture writes single frames from a session to PNG files. Each
// Capture call registers a one-shot sink that consumes exactly one frame,
// unregisters itself, and reports through the returned channel.
type ImageCapture struct {
	session *camera.CameraSession
	dir     string
}

// NewImageCapture creates a capturer writing into dir.
func NewImageCapture(session *camera.CameraSession, dir string) *ImageCapture {
	return &ImageCapture{session: session, dir: dir}
}

// Capture registers a one-shot sink on the session. The next delivered
// frame is written to a PNG file and the sink removes itself; the result
// arrives on the returned channel.
func (c *ImageCapture) Capture() (<-chan CaptureResult, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	shot := &oneShot{capture: c, result: make(chan CaptureResult, 1)}

	// Registration is completed under the sink's own lock, so a frame
	// arriving immediately still observes the token.
	shot.mu.Lock()
	token, err := c.session.AddSink(shot)
	if err != nil {
		shot.mu.Unlock()
		return nil, err
	}
	shot.token = token
	shot.mu.Unlock()
	return shot.result, nil
}

func (c *ImageCapture) writeFrame(f *camera.Frame) (string, error) {
	img, err := ToRGBA(f)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("frame-%06d-%s.png", f.Seq, uuid.NewString()[:8])
	path := filepath.Join(c.dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}

type oneShot struct {
	capture *ImageCapture
	result  chan CaptureResult

	mu    sync.Mutex
	token camera.SinkToken
	done  bool
}

func (o *oneShot) Consume(f *camera.Frame) error {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return nil
	}
	o.done = true
	token := o.token
	o.mu.Unlock()

	if err := o.capture.session.RemoveSink(token); err != nil {
		logger.WithComponent("image-capture").Warn().Err(err).Msg("one-shot sink deregistration failed")
	}

	path, err := o.capture.writeFrame(f)
	o.result <- CaptureResult{Path: path, Err: err}
	return err
}
