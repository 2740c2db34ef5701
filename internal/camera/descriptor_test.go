package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorIdentity(t *testing.T) {
	var zero DeviceDescriptor
	assert.True(t, zero.IsZero())
	assert.Equal(t, "<no device>", zero.String())

	a := DeviceDescriptor{ID: "cam1", Model: "SimCam", Serial: "SN-1"}
	b := DeviceDescriptor{ID: "cam1", Model: "OtherName", Serial: "SN-2"}
	c := DeviceDescriptor{ID: "cam2", Model: "SimCam", Serial: "SN-1"}

	assert.False(t, a.IsZero())
	assert.True(t, a.Equal(b), "descriptors compare by id only")
	assert.False(t, a.Equal(c))
	assert.Equal(t, "cam1 (SimCam #SN-1)", a.String())
}
