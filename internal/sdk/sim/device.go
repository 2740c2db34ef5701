package sim

import (
	"sync"
	"time"

	"github.com/acuvio/camlink/internal/sdk"
)

// DeviceConfig describes one simulated camera.
type DeviceConfig struct {
	ID     string
	Model  string
	Serial string

	Width  int
	Height int
	Format sdk.PixelFormat

	// FrameInterval is the generator period while a frame callback is
	// registered. Zero disables the generator; frames are then only produced
	// through EmitFrame.
	FrameInterval time.Duration

	// Features overrides or extends the default feature table.
	Features map[string]Feature
}

// Feature pairs a feature's metadata with its current value.
type Feature struct {
	Info  sdk.FeatureInfo
	Value sdk.FeatureValue
}

// Device is one simulated camera.
type Device struct {
	info sdk.DeviceInfo
	cfg  DeviceConfig

	mu       sync.Mutex
	opened   bool
	features map[string]*Feature
	cb       sdk.FrameCallback
	quit     chan struct{}
	done     chan struct{}

	// buf is reused across callback invocations so that consumers which fail
	// to copy observe corruption, like with a real driver.
	buf []byte
	seq uint8
}

func newDevice(cfg DeviceConfig) *Device {
	if cfg.Format == "" {
		cfg.Format = sdk.Mono8
	}
	if cfg.Width == 0 {
		cfg.Width = 64
	}
	if cfg.Height == 0 {
		cfg.Height = 48
	}
	d := &Device{
		info: sdk.DeviceInfo{ID: cfg.ID, Model: cfg.Model, Serial: cfg.Serial},
		cfg:  cfg,
		buf:  make([]byte, cfg.Width*cfg.Height*cfg.Format.BytesPerPixel()),
	}
	d.features = defaultFeatures(cfg)
	for name, f := range cfg.Features {
		fc := f
		fc.Info.Name = name
		d.features[name] = &fc
	}
	return d
}

func defaultFeatures(cfg DeviceConfig) map[string]*Feature {
	return map[string]*Feature{
		"Width": {
			Info:  sdk.FeatureInfo{Name: "Width", Kind: sdk.KindInt},
			Value: sdk.IntValue(int64(cfg.Width)),
		},
		"Height": {
			Info:  sdk.FeatureInfo{Name: "Height", Kind: sdk.KindInt},
			Value: sdk.IntValue(int64(cfg.Height)),
		},
		"PixelFormat": {
			Info: sdk.FeatureInfo{
				Name: "PixelFormat", Kind: sdk.KindEnum, Writable: true,
				Enum: []string{string(sdk.Mono8), string(sdk.Mono16), string(sdk.RGB8)},
			},
			Value: sdk.EnumValue(string(cfg.Format)),
		},
		"AcquisitionFrameRate": {
			Info: sdk.FeatureInfo{
				Name: "AcquisitionFrameRate", Kind: sdk.KindFloat, Writable: true,
				Min: 1, Max: 120,
			},
			Value: sdk.FloatValue(30),
		},
		"ExposureTime": {
			Info: sdk.FeatureInfo{
				Name: "ExposureTime", Kind: sdk.KindFloat, Writable: true,
				Min: 10, Max: 1000000,
			},
			Value: sdk.FloatValue(5000),
		},
		"Gain": {
			Info: sdk.FeatureInfo{
				Name: "Gain", Kind: sdk.KindFloat, Writable: true,
				Min: 0, Max: 40,
			},
			Value: sdk.FloatValue(0),
		},
		"ReverseX": {
			Info:  sdk.FeatureInfo{Name: "ReverseX", Kind: sdk.KindBool, Writable: true},
			Value: sdk.BoolValue(false),
		},
		"DeviceTemperature": {
			Info:  sdk.FeatureInfo{Name: "DeviceTemperature", Kind: sdk.KindFloat},
			Value: sdk.FloatValue(42.5),
		},
	}
}

func (d *Device) open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return sdk.ErrDeviceBusy
	}
	d.opened = true
	return nil
}

func (d *Device) forceClose() {
	_ = d.Close()
}

func (d *Device) Info() sdk.DeviceInfo { return d.info }

func (d *Device) Close() error {
	d.stopGenerator()
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return sdk.ErrDeviceClosed
	}
	d.opened = false
	d.cb = nil
	return nil
}

func (d *Device) RegisterFrameCallback(cb sdk.FrameCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return sdk.ErrDeviceClosed
	}
	if d.cb != nil {
		return sdk.ErrCallbackActive
	}
	d.cb = cb
	if d.cfg.FrameInterval > 0 {
		d.quit = make(chan struct{})
		d.done = make(chan struct{})
		go d.generate(d.quit, d.done)
	}
	return nil
}

func (d *Device) UnregisterFrameCallback() error {
	d.mu.Lock()
	if !d.opened {
		d.mu.Unlock()
		return sdk.ErrDeviceClosed
	}
	if d.cb == nil {
		d.mu.Unlock()
		return sdk.ErrNoCallback
	}
	d.cb = nil
	d.mu.Unlock()
	d.stopGenerator()
	return nil
}

func (d *Device) stopGenerator() {
	d.mu.Lock()
	quit, done := d.quit, d.done
	d.quit, d.done = nil, nil
	d.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-done
}

// generate is the simulated acquisition thread. It fills the shared buffer
// with a moving pattern and invokes the callback synchronously.
func (d *Device) generate(quit, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			d.fire(nil)
		}
	}
}

// EmitFrame delivers one frame through the registered callback from the
// caller's goroutine. When data is nil a generated pattern is used. It
// returns false if no callback is registered. Test hook.
func (d *Device) EmitFrame(data []byte) bool {
	return d.fire(data)
}

func (d *Device) fire(data []byte) bool {
	d.mu.Lock()
	cb := d.cb
	if cb == nil {
		d.mu.Unlock()
		return false
	}
	d.seq++
	if data != nil {
		copy(d.buf, data)
	} else {
		for i := range d.buf {
			d.buf[i] = byte(i) + d.seq
		}
	}
	fd := sdk.FrameData{
		Buffer:    d.buf,
		Width:     d.cfg.Width,
		Height:    d.cfg.Height,
		Format:    d.cfg.Format,
		Timestamp: time.Now(),
	}
	d.mu.Unlock()
	cb(fd)
	return true
}

func (d *Device) GetFeature(name string) (sdk.FeatureValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return sdk.FeatureValue{}, sdk.ErrDeviceClosed
	}
	f, ok := d.features[name]
	if !ok {
		return sdk.FeatureValue{}, sdk.ErrFeatureUnknown
	}
	return f.Value, nil
}

func (d *Device) SetFeature(name string, value sdk.FeatureValue) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return sdk.ErrDeviceClosed
	}
	f, ok := d.features[name]
	if !ok {
		return sdk.ErrFeatureUnknown
	}
	if !f.Info.Writable {
		return sdk.ErrFeatureReadOnly
	}
	f.Value = value
	return nil
}

func (d *Device) FeatureInfo(name string) (sdk.FeatureInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return sdk.FeatureInfo{}, sdk.ErrDeviceClosed
	}
	f, ok := d.features[name]
	if !ok {
		return sdk.FeatureInfo{}, sdk.ErrFeatureUnknown
	}
	return f.Info, nil
}
