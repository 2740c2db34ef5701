package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acuvio/camlink/internal/sdk"
)

func newRunningDriver(t *testing.T, configs ...DeviceConfig) *Driver {
	t.Helper()
	d := NewDriver(configs...)
	require.NoError(t, d.InitInstance())
	t.Cleanup(func() { _ = d.ShutdownInstance() })
	return d
}

func TestDriverRequiresInit(t *testing.T) {
	d := NewDriver(DeviceConfig{ID: "cam1"})

	_, err := d.Enumerate()
	assert.ErrorIs(t, err, sdk.ErrNotInitialized)
	_, err = d.Open("cam1")
	assert.ErrorIs(t, err, sdk.ErrNotInitialized)
}

func TestDriverFailNextInit(t *testing.T) {
	d := NewDriver()
	boom := errors.New("boom")
	d.FailNextInit(boom)

	assert.ErrorIs(t, d.InitInstance(), boom)
	// The failure is consumed; the next attempt succeeds.
	require.NoError(t, d.InitInstance())
}

func TestDriverEnumerateAttachOrder(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{ID: "b"}, DeviceConfig{ID: "a"})

	infos, err := d.Enumerate()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "b", infos[0].ID)
	assert.Equal(t, "a", infos[1].ID)
}

func TestDriverOpenExclusive(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{ID: "cam1"})

	dev, err := d.Open("cam1")
	require.NoError(t, err)
	_, err = d.Open("cam1")
	assert.ErrorIs(t, err, sdk.ErrDeviceBusy)
	_, err = d.Open("ghost")
	assert.ErrorIs(t, err, sdk.ErrNotFound)

	require.NoError(t, dev.Close())
	assert.ErrorIs(t, dev.Close(), sdk.ErrDeviceClosed)

	_, err = d.Open("cam1")
	require.NoError(t, err)
}

func TestDriverChangeHandler(t *testing.T) {
	d := newRunningDriver(t)

	type change struct {
		ev   sdk.ChangeEvent
		info sdk.DeviceInfo
	}
	changes := make(chan change, 4)
	d.RegisterChangeHandler(func(ev sdk.ChangeEvent, info sdk.DeviceInfo) {
		changes <- change{ev, info}
	})

	d.Attach(DeviceConfig{ID: "cam1", Model: "SimCam"})
	select {
	case c := <-changes:
		assert.Equal(t, sdk.DeviceAttached, c.ev)
		assert.Equal(t, "cam1", c.info.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no attach notification")
	}

	d.Detach("cam1")
	select {
	case c := <-changes:
		assert.Equal(t, sdk.DeviceDetached, c.ev)
		assert.Equal(t, "cam1", c.info.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no detach notification")
	}

	d.UnregisterChangeHandler()
	d.Attach(DeviceConfig{ID: "cam2"})
	select {
	case <-changes:
		t.Fatal("handler fired after unregister")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeviceCallbackLifecycle(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{ID: "cam1", Width: 4, Height: 4})
	dev, err := d.Open("cam1")
	require.NoError(t, err)
	defer dev.Close()

	simDev := d.Device("cam1")
	assert.False(t, simDev.EmitFrame(nil), "no callback registered yet")

	assert.ErrorIs(t, dev.UnregisterFrameCallback(), sdk.ErrNoCallback)

	got := make(chan sdk.FrameData, 4)
	require.NoError(t, dev.RegisterFrameCallback(func(fd sdk.FrameData) { got <- fd }))
	assert.ErrorIs(t, dev.RegisterFrameCallback(func(sdk.FrameData) {}), sdk.ErrCallbackActive)

	require.True(t, simDev.EmitFrame(nil))
	select {
	case fd := <-got:
		assert.Equal(t, 4, fd.Width)
		assert.Equal(t, 4, fd.Height)
		assert.Equal(t, sdk.Mono8, fd.Format)
		assert.Len(t, fd.Buffer, 16)
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}

	require.NoError(t, dev.UnregisterFrameCallback())
	assert.False(t, simDev.EmitFrame(nil))
}

func TestDeviceBufferIsReused(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{ID: "cam1", Width: 4, Height: 1})
	dev, err := d.Open("cam1")
	require.NoError(t, err)
	defer dev.Close()

	var first []byte
	require.NoError(t, dev.RegisterFrameCallback(func(fd sdk.FrameData) {
		if first == nil {
			first = fd.Buffer
		}
	}))

	simDev := d.Device("cam1")
	require.True(t, simDev.EmitFrame([]byte{1, 2, 3, 4}))
	snapshot := []byte{first[0], first[1], first[2], first[3]}
	require.True(t, simDev.EmitFrame([]byte{9, 9, 9, 9}))

	assert.Equal(t, []byte{1, 2, 3, 4}, snapshot)
	assert.Equal(t, []byte{9, 9, 9, 9}, first, "driver reuses the callback buffer")
}

func TestDeviceGeneratorProducesFrames(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{ID: "cam1", FrameInterval: time.Millisecond})
	dev, err := d.Open("cam1")
	require.NoError(t, err)
	defer dev.Close()

	got := make(chan struct{}, 16)
	require.NoError(t, dev.RegisterFrameCallback(func(sdk.FrameData) {
		select {
		case got <- struct{}{}:
		default:
		}
	}))

	for i := 0; i < 3; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatal("generator produced no frame")
		}
	}
	// Unregister stops the generator synchronously.
	require.NoError(t, dev.UnregisterFrameCallback())
}

func TestDeviceFeaturesAfterClose(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{ID: "cam1"})
	dev, err := d.Open("cam1")
	require.NoError(t, err)

	_, err = dev.GetFeature("Gain")
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	_, err = dev.GetFeature("Gain")
	assert.ErrorIs(t, err, sdk.ErrDeviceClosed)
	assert.ErrorIs(t, dev.SetFeature("Gain", sdk.FloatValue(1)), sdk.ErrDeviceClosed)
	_, err = dev.FeatureInfo("Gain")
	assert.ErrorIs(t, err, sdk.ErrDeviceClosed)
}

func TestDeviceFeatureTable(t *testing.T) {
	d := newRunningDriver(t, DeviceConfig{
		ID: "cam1",
		Features: map[string]Feature{
			"UserSetSelector": {
				Info:  sdk.FeatureInfo{Kind: sdk.KindEnum, Writable: true, Enum: []string{"Default", "UserSet1"}},
				Value: sdk.EnumValue("Default"),
			},
		},
	})
	dev, err := d.Open("cam1")
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.GetFeature("NoSuch")
	assert.ErrorIs(t, err, sdk.ErrFeatureUnknown)

	assert.ErrorIs(t, dev.SetFeature("DeviceTemperature", sdk.FloatValue(1)), sdk.ErrFeatureReadOnly)

	info, err := dev.FeatureInfo("UserSetSelector")
	require.NoError(t, err)
	assert.Equal(t, "UserSetSelector", info.Name)
	v, err := dev.GetFeature("UserSetSelector")
	require.NoError(t, err)
	s, err := v.Str()
	require.NoError(t, err)
	assert.Equal(t, "Default", s)
}
