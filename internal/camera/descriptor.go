package camera

import (
	"fmt"

	"github.com/acuvio/camlink/internal/sdk"
)

// DeviceDescriptor is the immutable identity record of one discovered
// camera. Descriptors compare by ID; model and serial are display metadata.
type DeviceDescriptor struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
}

func descriptorFromInfo(info sdk.DeviceInfo) DeviceDescriptor {
	return DeviceDescriptor{ID: info.ID, Model: info.Model, Serial: info.Serial}
}

// IsZero reports whether the descriptor identifies no device.
func (d DeviceDescriptor) IsZero() bool { return d.ID == "" }

// Equal compares descriptors by stable device id.
func (d DeviceDescriptor) Equal(other DeviceDescriptor) bool { return d.ID == other.ID }

func (d DeviceDescriptor) String() string {
	if d.IsZero() {
		return "<no device>"
	}
	return fmt.Sprintf("%s (%s #%s)", d.ID, d.Model, d.Serial)
}
