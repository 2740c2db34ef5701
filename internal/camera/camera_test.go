package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acuvio/camlink/internal/dispatch"
	"github.com/acuvio/camlink/internal/sdk"
	"github.com/acuvio/camlink/internal/sdk/sim"
)

// testStack wires a simulated driver, a native owner loop, and a running
// instance runner; everything is torn down with the test.
type testStack struct {
	loop     *dispatch.NativeLoop
	driver   *sim.Driver
	runner   *InstanceRunner
	registry *DeviceRegistry
}

func newTestStack(t *testing.T, configs ...sim.DeviceConfig) *testStack {
	t.Helper()

	loop := dispatch.NewNativeLoop()
	require.NoError(t, loop.Start())

	driver := sim.NewDriver(configs...)
	runner := NewInstanceRunner(driver, loop)
	registry := NewDeviceRegistry(runner)
	require.NoError(t, runner.Start())

	t.Cleanup(func() {
		runner.Stop()
		loop.Stop()
	})
	return &testStack{loop: loop, driver: driver, runner: runner, registry: registry}
}

func testDevice(id string) sim.DeviceConfig {
	return sim.DeviceConfig{
		ID:     id,
		Model:  "SimCam",
		Serial: "SN-" + id,
		Width:  8,
		Height: 6,
		Format: sdk.Mono8,
	}
}

// settle waits until the owner loop has processed everything posted so far.
func (s *testStack) settle(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, s.loop.Post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("owner loop did not settle")
	}
}

// blockLoop parks the owner loop until the returned function is called.
func (s *testStack) blockLoop(t *testing.T) func() {
	t.Helper()
	release := make(chan struct{})
	entered := make(chan struct{})
	require.NoError(t, s.loop.Post(func() {
		close(entered)
		<-release
	}))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("owner loop did not pick up blocker")
	}
	return func() { close(release) }
}
