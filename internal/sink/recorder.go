package sink

import (
	"fmt"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/logger"
)

// RecorderConfig describes the output container and the frame geometry the
// pipeline is negotiated for. Frames delivered with a different geometry are
// rejected per frame, not fatal to the recording.
type RecorderConfig struct {
	Path    string
	Width   int
	Height  int
	FPS     int
	Quality int
}

// Recorder appends frames to a Matroska file through a GStreamer pipeline
// (appsrc → videoconvert → jpegenc → matroskamux → filesink). It implements
// camera.FrameSink and records every frame delivered while registered.
type Recorder struct {
	cfg RecorderConfig

	mu       sync.Mutex
	pipeline *gst.Pipeline
	src      *app.Source
	running  bool
	frames   uint64
}

// NewRecorder creates a stopped recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	return &Recorder{cfg: cfg}
}

// Start builds and starts the pipeline.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("recorder already running")
	}

	gst.Init(nil)

	pipelineStr := fmt.Sprintf(
		"appsrc name=src is-live=true do-timestamp=true format=time "+
			"caps=video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1 ! "+
			"videoconvert ! jpegenc quality=%d ! matroskamux ! "+
			"filesink location=%s",
		r.cfg.Width, r.cfg.Height, r.cfg.FPS, r.cfg.Quality, r.cfg.Path,
	)

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return fmt.Errorf("create recording pipeline: %w", err)
	}

	srcElement, err := pipeline.GetElementByName("src")
	if err != nil {
		return fmt.Errorf("get appsrc: %w", err)
	}
	r.src = app.SrcFromElement(srcElement)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("start recording pipeline: %w", err)
	}

	r.pipeline = pipeline
	r.running = true
	r.frames = 0
	logger.WithComponent("recorder").Info().
		Str("path", r.cfg.Path).
		Int("width", r.cfg.Width).
		Int("height", r.cfg.Height).
		Msg("recording started")
	return nil
}

// Stop finalizes the container and tears the pipeline down.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false

	r.src.EndStream()
	if err := r.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stop recording pipeline: %w", err)
	}
	logger.WithComponent("recorder").Info().
		Uint64("frames", r.frames).
		Str("path", r.cfg.Path).
		Msg("recording stopped")
	return nil
}

// IsRunning reports whether the pipeline is up.
func (r *Recorder) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Frames returns the number of frames pushed into the pipeline.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Consume converts the frame to RGBA and pushes it into the pipeline.
func (r *Recorder) Consume(f *camera.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return fmt.Errorf("recorder not running")
	}
	if f.Width != r.cfg.Width || f.Height != r.cfg.Height {
		return fmt.Errorf("recorder: frame is %dx%d, pipeline negotiated %dx%d",
			f.Width, f.Height, r.cfg.Width, r.cfg.Height)
	}

	rgba, err := ToRGBA(f)
	if err != nil {
		return err
	}
	buffer := gst.NewBufferFromBytes(rgba.Pix)
	if ret := r.src.PushBuffer(buffer); ret != gst.FlowOK {
		return fmt.Errorf("recorder: push buffer failed (flow %d)", int(ret))
	}
	r.frames++
	return nil
}
