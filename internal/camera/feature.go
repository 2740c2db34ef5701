package camera

import (
	"errors"
	"fmt"

	"github.com/acuvio/camlink/internal/sdk"
)

// FeatureHandle is a thin accessor for one named camera feature. It holds no
// cached state: every call rounds-trips to the driver so the handle always
// reflects the live device. The handle fails with ErrFeatureUnavailable once
// its owning device is closed.
type FeatureHandle struct {
	name string
	dev  *OpenedDevice
}

// Name returns the feature's name.
func (h *FeatureHandle) Name() string { return h.name }

// Get reads the feature's current value.
func (h *FeatureHandle) Get() (sdk.FeatureValue, error) {
	dev, err := h.dev.live()
	if err != nil {
		return sdk.FeatureValue{}, err
	}
	v, err := dev.GetFeature(h.name)
	if err != nil {
		return sdk.FeatureValue{}, h.wrap(err)
	}
	return v, nil
}

// Set coerces value to the feature's kind, validates it against the
// feature's bounds, and writes it to the device. Fails with ErrFeatureType
// on a coercion mismatch and ErrFeatureRange for a value outside bounds.
func (h *FeatureHandle) Set(value sdk.FeatureValue) error {
	dev, err := h.dev.live()
	if err != nil {
		return err
	}
	info, err := dev.FeatureInfo(h.name)
	if err != nil {
		return h.wrap(err)
	}
	coerced, err := value.Coerce(info.Kind)
	if err != nil {
		return fmt.Errorf("%w: feature %s expects %s, got %s",
			ErrFeatureType, h.name, info.Kind, value.Kind())
	}
	if !info.InRange(coerced) {
		return fmt.Errorf("%w: %s=%s", ErrFeatureRange, h.name, coerced)
	}
	if err := dev.SetFeature(h.name, coerced); err != nil {
		return h.wrap(err)
	}
	return nil
}

// Range returns the feature's metadata: kind, writability, and legal values.
func (h *FeatureHandle) Range() (sdk.FeatureInfo, error) {
	dev, err := h.dev.live()
	if err != nil {
		return sdk.FeatureInfo{}, err
	}
	info, err := dev.FeatureInfo(h.name)
	if err != nil {
		return sdk.FeatureInfo{}, h.wrap(err)
	}
	return info, nil
}

func (h *FeatureHandle) wrap(err error) error {
	switch {
	case errors.Is(err, sdk.ErrDeviceClosed), errors.Is(err, sdk.ErrFeatureUnknown):
		return fmt.Errorf("%w: %s: %v", ErrFeatureUnavailable, h.name, err)
	case errors.Is(err, sdk.ErrValueType):
		return fmt.Errorf("%w: %s: %v", ErrFeatureType, h.name, err)
	default:
		return fmt.Errorf("feature %s: %w", h.name, err)
	}
}
