package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/sink"
)

var (
	snapDevice string

	snapCmd = &cobra.Command{
		Use:   "snap",
		Short: "Capture a single frame to a PNG file",
		Long: `Open a camera, stream until one frame arrives, write it to the capture
directory as PNG, and shut down. Without --device the first enumerated
camera is used.`,
		RunE: runSnap,
	}
)

func init() {
	snapCmd.Flags().StringVar(&snapDevice, "device", "", "device id (default: first attached camera)")
	rootCmd.AddCommand(snapCmd)
}

func runSnap(cmd *cobra.Command, args []string) error {
	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := buildStack(cfgMgr)
	if err != nil {
		return err
	}
	defer st.shutdown()

	devices, err := st.registry.Refresh()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no cameras attached")
	}
	desc := devices[0]
	if snapDevice != "" {
		found := false
		for _, d := range devices {
			if d.ID == snapDevice {
				desc = d
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("device %q not attached", snapDevice)
		}
	}

	session := camera.NewCameraSession(st.registry)
	if err := session.SetDevice(&desc); err != nil {
		return err
	}
	defer session.SetDevice(nil)

	capturer := sink.NewImageCapture(session, st.cfg.CaptureDir)
	resultCh, err := capturer.Capture()
	if err != nil {
		return err
	}

	if err := session.Start(); err != nil {
		return err
	}
	defer func() {
		if session.State() == camera.SessionStreaming {
			session.Stop()
		}
	}()

	select {
	case result := <-resultCh:
		if result.Err != nil {
			return result.Err
		}
		fmt.Printf("Captured %s\n", result.Path)
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for a frame from %s", desc.ID)
	}
}
