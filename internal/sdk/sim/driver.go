// Package sim implements sdk.Driver in pure Go. Frames are produced by a
// per-device generator goroutine, which stands in for the vendor SDK's
// internal acquisition thread: callbacks fire off the caller's goroutines
// and the frame buffer is reused between invocations, so receivers must
// copy, exactly as with a real driver.
package sim

import (
	"sync"

	"github.com/acuvio/camlink/internal/sdk"
)

// Driver is a simulated vendor driver instance.
type Driver struct {
	mu          sync.Mutex
	initialized bool
	devices     map[string]*Device
	order       []string
	handler     sdk.ChangeHandler
	initErr     error
}

// NewDriver creates a driver with the given devices attached.
func NewDriver(configs ...DeviceConfig) *Driver {
	d := &Driver{devices: make(map[string]*Device)}
	for _, cfg := range configs {
		d.attachLocked(cfg)
	}
	return d
}

// Device returns the simulated device with the given id regardless of its
// open state, or nil. Test hook.
func (d *Driver) Device(id string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices[id]
}

// FailNextInit makes the next InitInstance call fail with err. Test hook.
func (d *Driver) FailNextInit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initErr = err
}

func (d *Driver) InitInstance() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initErr != nil {
		err := d.initErr
		d.initErr = nil
		return err
	}
	d.initialized = true
	return nil
}

func (d *Driver) ShutdownInstance() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	return nil
}

func (d *Driver) Enumerate() ([]sdk.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, sdk.ErrNotInitialized
	}
	infos := make([]sdk.DeviceInfo, 0, len(d.order))
	for _, id := range d.order {
		infos = append(infos, d.devices[id].info)
	}
	return infos, nil
}

func (d *Driver) Open(id string) (sdk.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, sdk.ErrNotInitialized
	}
	dev, ok := d.devices[id]
	if !ok {
		return nil, sdk.ErrNotFound
	}
	if err := dev.open(); err != nil {
		return nil, err
	}
	return dev, nil
}

func (d *Driver) RegisterChangeHandler(h sdk.ChangeHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

func (d *Driver) UnregisterChangeHandler() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = nil
}

// Attach plugs in a new device and fires the change handler from a fresh
// goroutine, mirroring a real driver's internal notification thread.
func (d *Driver) Attach(cfg DeviceConfig) {
	d.mu.Lock()
	dev := d.attachLocked(cfg)
	h := d.handler
	d.mu.Unlock()
	if h != nil {
		go h(sdk.DeviceAttached, dev.info)
	}
}

// Detach unplugs a device. Open handles observe sdk.ErrDeviceClosed on the
// next access.
func (d *Driver) Detach(id string) {
	d.mu.Lock()
	dev, ok := d.devices[id]
	if ok {
		delete(d.devices, id)
		for i, oid := range d.order {
			if oid == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
	h := d.handler
	d.mu.Unlock()
	if !ok {
		return
	}
	dev.forceClose()
	if h != nil {
		go h(sdk.DeviceDetached, dev.info)
	}
}

func (d *Driver) attachLocked(cfg DeviceConfig) *Device {
	dev := newDevice(cfg)
	d.devices[cfg.ID] = dev
	d.order = append(d.order, cfg.ID)
	return dev
}
