package camera

import (
	"sync"

	"github.com/acuvio/camlink/internal/sdk"
)

// OpenedDevice is an exclusively owned handle to one open camera. It is
// created by DeviceRegistry.Resolve and released by Close; while it exists
// no second handle to the same device can be resolved and the instance
// runner refuses to stop.
type OpenedDevice struct {
	desc DeviceDescriptor
	reg  *DeviceRegistry

	mu     sync.Mutex
	dev    sdk.Device
	closed bool
}

// Descriptor returns the identity the handle was resolved from.
func (d *OpenedDevice) Descriptor() DeviceDescriptor { return d.desc }

// Close releases the device back to the driver. Feature handles bound to
// this device fail with ErrFeatureUnavailable afterwards. Close is
// idempotent.
func (d *OpenedDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	dev := d.dev
	d.mu.Unlock()

	err := dev.Close()
	d.reg.release(d.desc.ID)
	return err
}

// live returns the underlying driver device, or ErrFeatureUnavailable once
// the handle is closed.
func (d *OpenedDevice) live() (sdk.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrFeatureUnavailable
	}
	return d.dev, nil
}

func (d *OpenedDevice) registerFrameCallback(cb sdk.FrameCallback) error {
	dev, err := d.live()
	if err != nil {
		return err
	}
	return dev.RegisterFrameCallback(cb)
}

func (d *OpenedDevice) unregisterFrameCallback() error {
	dev, err := d.live()
	if err != nil {
		return err
	}
	return dev.UnregisterFrameCallback()
}

// Feature returns a handle to the named feature. The handle is only valid
// while this device stays open.
func (d *OpenedDevice) Feature(name string) *FeatureHandle {
	return &FeatureHandle{name: name, dev: d}
}

// Resolution reads the device's current frame dimensions.
func (d *OpenedDevice) Resolution() (width, height int64, err error) {
	w, err := d.Feature("Width").Get()
	if err != nil {
		return 0, 0, err
	}
	h, err := d.Feature("Height").Get()
	if err != nil {
		return 0, 0, err
	}
	if width, err = w.Int(); err != nil {
		return 0, 0, err
	}
	if height, err = h.Int(); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// FrameRate reads the device's current acquisition frame rate.
func (d *OpenedDevice) FrameRate() (float64, error) {
	v, err := d.Feature("AcquisitionFrameRate").Get()
	if err != nil {
		return 0, err
	}
	return v.Float()
}

// PixelFormat reads the device's current pixel format.
func (d *OpenedDevice) PixelFormat() (sdk.PixelFormat, error) {
	v, err := d.Feature("PixelFormat").Get()
	if err != nil {
		return "", err
	}
	s, err := v.Str()
	if err != nil {
		return "", err
	}
	return sdk.PixelFormat(s), nil
}
