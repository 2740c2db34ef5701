package sink

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/dispatch"
	"github.com/acuvio/camlink/internal/sdk"
	"github.com/acuvio/camlink/internal/sdk/sim"
)

// newStreamingSession brings up a full stack around one simulated camera and
// returns the streaming session plus the device for frame injection.
func newStreamingSession(t *testing.T) (*camera.CameraSession, *sim.Device) {
	t.Helper()

	loop := dispatch.NewNativeLoop()
	require.NoError(t, loop.Start())

	driver := sim.NewDriver(sim.DeviceConfig{
		ID: "cam1", Model: "SimCam", Serial: "SN-1",
		Width: 8, Height: 6, Format: sdk.Mono8,
	})
	runner := camera.NewInstanceRunner(driver, loop)
	registry := camera.NewDeviceRegistry(runner)
	require.NoError(t, runner.Start())

	session := camera.NewCameraSession(registry)
	desc := camera.DeviceDescriptor{ID: "cam1"}
	require.NoError(t, session.SetDevice(&desc))
	require.NoError(t, session.Start())

	t.Cleanup(func() {
		_ = session.Stop()
		_ = session.SetDevice(nil)
		_ = runner.Stop()
		_ = loop.Stop()
	})
	return session, driver.Device("cam1")
}

func TestImageCaptureOneShot(t *testing.T) {
	session, dev := newStreamingSession(t)
	dir := t.TempDir()
	ic := NewImageCapture(session, dir)

	results, err := ic.Capture()
	require.NoError(t, err)

	require.True(t, dev.EmitFrame(nil))
	var res CaptureResult
	select {
	case res = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not complete")
	}
	require.NoError(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Path, dir))
	assert.True(t, strings.HasSuffix(res.Path, ".png"))

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// The sink removed itself; further frames produce no more files.
	require.True(t, dev.EmitFrame(nil))
	time.Sleep(50 * time.Millisecond)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImageCaptureConcurrentShots(t *testing.T) {
	session, dev := newStreamingSession(t)
	ic := NewImageCapture(session, t.TempDir())

	r1, err := ic.Capture()
	require.NoError(t, err)
	r2, err := ic.Capture()
	require.NoError(t, err)

	require.True(t, dev.EmitFrame(nil))
	for _, ch := range []<-chan CaptureResult{r1, r2} {
		select {
		case res := <-ch:
			require.NoError(t, res.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("capture did not complete")
		}
	}
}

func TestMJPEGSinkLifecycle(t *testing.T) {
	m := NewMJPEGSink(MJPEGConfig{})
	assert.False(t, m.IsRunning())

	f := &camera.Frame{Data: make([]byte, 4), Width: 2, Height: 2, Format: sdk.Mono8}
	assert.Error(t, m.Consume(f), "stopped sink refuses frames")

	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	require.NoError(t, m.Start())

	require.NoError(t, m.Consume(f))
	require.NoError(t, m.Stop())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.Stop())
}

func TestMJPEGSinkStreamsToClient(t *testing.T) {
	m := NewMJPEGSink(MJPEGConfig{Width: 4, Height: 4, Quality: 50})
	require.NoError(t, m.Start())
	defer m.Stop()

	srv := httptest.NewServer(m)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "multipart/x-mixed-replace")

	// Wait for the client to register, then push a frame through.
	deadline := time.Now().Add(2 * time.Second)
	for m.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f := &camera.Frame{Data: make([]byte, 8*6), Width: 8, Height: 6, Format: sdk.Mono8}
	require.NoError(t, m.Consume(f))

	buf := make([]byte, 512)
	n, err := resp.Body.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read stream: %v", err)
	}
	part := string(buf[:n])
	assert.Contains(t, part, "--frame")
	assert.Contains(t, part, "Content-Type: image/jpeg")
}

func TestMJPEGSinkStopDisconnectsClients(t *testing.T) {
	m := NewMJPEGSink(MJPEGConfig{})
	require.NoError(t, m.Start())

	srv := httptest.NewServer(m)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for m.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, m.Stop())
	_, err = io.ReadAll(resp.Body)
	assert.NoError(t, err, "stream ends cleanly")
	assert.Equal(t, 0, m.ClientCount())
}

func TestMJPEGSinkRejectsAfterStop(t *testing.T) {
	m := NewMJPEGSink(MJPEGConfig{})
	srv := httptest.NewServer(m)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
