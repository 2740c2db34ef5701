package sink

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/logger"
)

// MJPEGConfig configures the preview stream. Zero Width/Height keeps the
// camera's native resolution.
type MJPEGConfig struct {
	Width   int
	Height  int
	Quality int
}

// MJPEGSink broadcasts frames as a Motion JPEG HTTP stream, so a live
// preview can be opened in any browser. It implements camera.FrameSink; a
// slow client skips frames rather than stalling delivery.
type MJPEGSink struct {
	cfg MJPEGConfig

	mu      sync.RWMutex
	running bool

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
	startTime  time.Time
}

// NewMJPEGSink creates a stopped MJPEG broadcaster.
func NewMJPEGSink(cfg MJPEGConfig) *MJPEGSink {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	return &MJPEGSink{
		cfg:     cfg,
		clients: make(map[chan []byte]struct{}),
	}
}

// Start enables frame intake.
func (m *MJPEGSink) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.startTime = time.Now()
	m.frameCount = 0
	return nil
}

// Stop disconnects all clients and stops frame intake.
func (m *MJPEGSink) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("mjpeg").Info().Uint64("frames", m.frameCount).Msg("preview stopped")
	return nil
}

// IsRunning reports whether the sink accepts frames.
func (m *MJPEGSink) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Consume encodes the frame as JPEG and broadcasts it to the connected
// clients. Slow clients drop the frame.
func (m *MJPEGSink) Consume(f *camera.Frame) error {
	if !m.IsRunning() {
		return fmt.Errorf("mjpeg sink not running")
	}

	rgba, err := ToRGBA(f)
	if err != nil {
		return err
	}
	if m.cfg.Width > 0 && m.cfg.Height > 0 {
		rgba = scaleRGBA(rgba, m.cfg.Width, m.cfg.Height)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, rgba, &jpeg.Options{Quality: m.cfg.Quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	data := buf.Bytes()

	m.mu.Lock()
	m.frameCount++
	m.mu.Unlock()

	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- data:
		default:
			// Client is slow, skip this frame.
		}
	}
	m.clientsMu.RUnlock()
	return nil
}

// ClientCount returns the number of connected stream clients.
func (m *MJPEGSink) ClientCount() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

// ServeHTTP streams multipart JPEG parts until the client disconnects or the
// sink stops.
func (m *MJPEGSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !m.IsRunning() {
		http.Error(w, "stream not running", http.StatusServiceUnavailable)
		return
	}

	ch := make(chan []byte, 4)
	m.clientsMu.Lock()
	m.clients[ch] = struct{}{}
	m.clientsMu.Unlock()
	defer func() {
		m.clientsMu.Lock()
		if _, ok := m.clients[ch]; ok {
			delete(m.clients, ch)
			close(ch)
		}
		m.clientsMu.Unlock()
	}()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
