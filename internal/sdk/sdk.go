// Package sdk defines the surface consumed from a vendor camera-acquisition
// SDK: global instance lifecycle, device enumeration and open/close, frame
// callbacks, and named feature access. A vendor binding implements Driver;
// the sim subpackage provides a pure-Go implementation for development and
// tests.
package sdk

import (
	"errors"
	"time"
)

var (
	ErrNotInitialized  = errors.New("sdk: instance not initialized")
	ErrNotFound        = errors.New("sdk: device not found")
	ErrDeviceBusy      = errors.New("sdk: device already open")
	ErrDeviceClosed    = errors.New("sdk: device closed")
	ErrFeatureUnknown  = errors.New("sdk: unknown feature")
	ErrFeatureReadOnly = errors.New("sdk: feature is read-only")
	ErrCallbackActive  = errors.New("sdk: frame callback already registered")
	ErrNoCallback      = errors.New("sdk: no frame callback registered")
)

// PixelFormat identifies the layout of a frame buffer.
type PixelFormat string

const (
	Mono8  PixelFormat = "Mono8"
	Mono16 PixelFormat = "Mono16"
	RGB8   PixelFormat = "RGB8"
	BGR8   PixelFormat = "BGR8"
	RGBA8  PixelFormat = "RGBA8"
)

// BytesPerPixel returns the per-pixel buffer size for the format, or 0 for
// an unknown format.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case Mono8:
		return 1
	case Mono16:
		return 2
	case RGB8, BGR8:
		return 3
	case RGBA8:
		return 4
	}
	return 0
}

// DeviceInfo is the identity record the driver reports for one attached
// camera.
type DeviceInfo struct {
	ID     string
	Model  string
	Serial string
}

// FrameData is the payload handed to a frame callback. Buffer is owned by
// the driver and is only valid for the duration of the callback; the
// receiver must copy it before returning.
type FrameData struct {
	Buffer    []byte
	Width     int
	Height    int
	Format    PixelFormat
	Timestamp time.Time
}

// FrameCallback receives frames on the driver's internal acquisition thread.
// It must return quickly and must not call back into the driver.
type FrameCallback func(FrameData)

// ChangeEvent reports a hot-plug transition.
type ChangeEvent int

const (
	DeviceAttached ChangeEvent = iota
	DeviceDetached
)

// ChangeHandler receives hot-plug notifications on the driver's internal
// thread.
type ChangeHandler func(ChangeEvent, DeviceInfo)

// Driver is the process-wide vendor driver instance. InitInstance must be
// called from the thread that will host the instance, and all other calls
// are only legal between InitInstance and ShutdownInstance.
type Driver interface {
	InitInstance() error
	ShutdownInstance() error

	Enumerate() ([]DeviceInfo, error)
	Open(id string) (Device, error)

	RegisterChangeHandler(ChangeHandler)
	UnregisterChangeHandler()
}

// Device is one opened camera. A Device is exclusively owned: the driver
// returns ErrDeviceBusy from Open while a previous handle is not closed.
type Device interface {
	Info() DeviceInfo
	Close() error

	// RegisterFrameCallback starts acquisition, invoking cb on the driver's
	// internal thread for every completed frame. Only one callback may be
	// active per device.
	RegisterFrameCallback(cb FrameCallback) error

	// UnregisterFrameCallback stops acquisition. It returns only after the
	// last in-flight callback invocation has completed, in bounded time.
	UnregisterFrameCallback() error

	GetFeature(name string) (FeatureValue, error)
	SetFeature(name string, value FeatureValue) error
	FeatureInfo(name string) (FeatureInfo, error)
}
