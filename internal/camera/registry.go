package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sdk"
)

// DeviceRegistry enumerates attached cameras and resolves descriptors to
// exclusively owned device handles. Hot-plug notifications arriving on the
// driver's internal thread are applied on the owner loop, so registered
// change handlers never race with observation.
type DeviceRegistry struct {
	runner *InstanceRunner
	log    *zerolog.Logger

	mu      sync.Mutex
	known   map[string]DeviceDescriptor
	open    map[string]*OpenedDevice
	added   []func(DeviceDescriptor)
	removed []func(string)
}

// NewDeviceRegistry creates the registry for a runner and wires it up as the
// target of the runner's hot-plug relay.
func NewDeviceRegistry(runner *InstanceRunner) *DeviceRegistry {
	reg := &DeviceRegistry{
		runner: runner,
		log:    logger.WithComponent("device-registry"),
		known:  make(map[string]DeviceDescriptor),
		open:   make(map[string]*OpenedDevice),
	}
	runner.setRegistry(reg)
	return reg
}

// OnDeviceAdded registers a handler for newly attached devices. Handlers run
// on the owner loop.
func (reg *DeviceRegistry) OnDeviceAdded(fn func(DeviceDescriptor)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.added = append(reg.added, fn)
}

// OnDeviceRemoved registers a handler for detached device ids. Handlers run
// on the owner loop.
func (reg *DeviceRegistry) OnDeviceRemoved(fn func(string)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.removed = append(reg.removed, fn)
}

// Refresh queries the driver for currently attached devices and returns
// their descriptors in driver order. An empty result is not an error.
// Fails with ErrRunnerNotReady while the instance is not Running.
func (reg *DeviceRegistry) Refresh() ([]DeviceDescriptor, error) {
	if !reg.runner.IsRunning() {
		return nil, ErrRunnerNotReady
	}
	infos, err := reg.runner.drv.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	descs := make([]DeviceDescriptor, 0, len(infos))
	current := make(map[string]DeviceDescriptor, len(infos))
	for _, info := range infos {
		d := descriptorFromInfo(info)
		descs = append(descs, d)
		current[d.ID] = d
	}

	reg.mu.Lock()
	var addedDescs []DeviceDescriptor
	var removedIDs []string
	for id, d := range current {
		if _, ok := reg.known[id]; !ok {
			addedDescs = append(addedDescs, d)
		}
	}
	for id := range reg.known {
		if _, ok := current[id]; !ok {
			removedIDs = append(removedIDs, id)
		}
	}
	reg.known = current
	reg.mu.Unlock()

	for _, d := range addedDescs {
		reg.notifyAdded(d)
	}
	for _, id := range removedIDs {
		reg.notifyRemoved(id)
	}
	return descs, nil
}

// Resolve opens the device identified by desc and returns an exclusively
// owned handle. A device already held by another handle fails with
// ErrDeviceBusy; an id the driver no longer reports fails with
// ErrDeviceNotFound.
func (reg *DeviceRegistry) Resolve(desc DeviceDescriptor) (*OpenedDevice, error) {
	if !reg.runner.IsRunning() {
		return nil, ErrRunnerNotReady
	}
	if desc.IsZero() {
		return nil, ErrDeviceNotFound
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, held := reg.open[desc.ID]; held {
		return nil, ErrDeviceBusy
	}
	dev, err := reg.runner.drv.Open(desc.ID)
	if err != nil {
		switch {
		case errors.Is(err, sdk.ErrNotFound):
			return nil, ErrDeviceNotFound
		case errors.Is(err, sdk.ErrDeviceBusy):
			return nil, ErrDeviceBusy
		default:
			return nil, fmt.Errorf("open device %s: %w", desc.ID, err)
		}
	}
	od := &OpenedDevice{desc: desc, reg: reg, dev: dev}
	reg.open[desc.ID] = od
	reg.log.Debug().Str("device", desc.ID).Msg("device opened")
	return od, nil
}

// Known returns the descriptors from the last refresh or hot-plug update.
func (reg *DeviceRegistry) Known() []DeviceDescriptor {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	descs := make([]DeviceDescriptor, 0, len(reg.known))
	for _, d := range reg.known {
		descs = append(descs, d)
	}
	return descs
}

func (reg *DeviceRegistry) openCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.open)
}

func (reg *DeviceRegistry) release(id string) {
	reg.mu.Lock()
	delete(reg.open, id)
	reg.mu.Unlock()
	reg.log.Debug().Str("device", id).Msg("device closed")
}

// applyChange runs on the owner loop, posted by the runner's hot-plug relay.
func (reg *DeviceRegistry) applyChange(ev sdk.ChangeEvent, info sdk.DeviceInfo) {
	d := descriptorFromInfo(info)
	reg.mu.Lock()
	switch ev {
	case sdk.DeviceAttached:
		if _, ok := reg.known[d.ID]; ok {
			reg.mu.Unlock()
			return
		}
		reg.known[d.ID] = d
	case sdk.DeviceDetached:
		if _, ok := reg.known[d.ID]; !ok {
			reg.mu.Unlock()
			return
		}
		delete(reg.known, d.ID)
	}
	reg.mu.Unlock()

	switch ev {
	case sdk.DeviceAttached:
		reg.log.Info().Str("device", d.ID).Msg("device attached")
		reg.notifyAdded(d)
	case sdk.DeviceDetached:
		reg.log.Info().Str("device", d.ID).Msg("device detached")
		reg.notifyRemoved(d.ID)
	}
}

// notifyAdded and notifyRemoved always post to the owner loop, so handlers
// observe changes on a single context regardless of whether the change came
// from Refresh or from a hot-plug notification.
func (reg *DeviceRegistry) notifyAdded(d DeviceDescriptor) {
	reg.mu.Lock()
	handlers := make([]func(DeviceDescriptor), len(reg.added))
	copy(handlers, reg.added)
	reg.mu.Unlock()
	_ = reg.runner.loop.Post(func() {
		for _, fn := range handlers {
			fn(d)
		}
	})
}

func (reg *DeviceRegistry) notifyRemoved(id string) {
	reg.mu.Lock()
	handlers := make([]func(string), len(reg.removed))
	copy(handlers, reg.removed)
	reg.mu.Unlock()
	_ = reg.runner.loop.Post(func() {
		for _, fn := range handlers {
			fn(id)
		}
	})
}
