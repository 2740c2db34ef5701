package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sink"
)

var (
	recordDevice   string
	recordOutput   string
	recordDuration time.Duration

	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Record a camera stream to a Matroska file",
		Long: `Open a camera and append every streamed frame to a Matroska file until
interrupted or --duration elapses. Without --device the first enumerated
camera is used; without --output the configured record path is used.`,
		Example: `  # Record the first camera until Ctrl-C
  camlink record

  # Ten seconds from a specific camera
  camlink record --device CAM-0002 --output clip.mkv --duration 10s`,
		RunE: runRecord,
	}
)

func init() {
	recordCmd.Flags().StringVar(&recordDevice, "device", "", "device id (default: first attached camera)")
	recordCmd.Flags().StringVar(&recordOutput, "output", "", "output file (default: configured record path)")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long (default: run until interrupted)")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
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
	if recordDevice != "" {
		found := false
		for _, d := range devices {
			if d.ID == recordDevice {
				desc = d
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("device %q not attached", recordDevice)
		}
	}

	session := camera.NewCameraSession(st.registry)
	if err := session.SetDevice(&desc); err != nil {
		return err
	}
	defer session.SetDevice(nil)

	// The pipeline caps are negotiated from the device's live geometry.
	width, height, err := session.Opened().Resolution()
	if err != nil {
		return err
	}
	fps := st.cfg.Record.FPS
	if rate, err := session.Opened().FrameRate(); err == nil && rate > 0 {
		fps = int(rate)
	}

	output := recordOutput
	if output == "" {
		output = st.cfg.Record.Path
	}
	rec := sink.NewRecorder(sink.RecorderConfig{
		Path:    output,
		Width:   int(width),
		Height:  int(height),
		FPS:     fps,
		Quality: st.cfg.Stream.Quality,
	})
	if err := rec.Start(); err != nil {
		return err
	}
	defer rec.Stop()

	if _, err := session.AddSink(rec); err != nil {
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

	fmt.Printf("Recording %s to %s (Ctrl-C to stop)\n", desc.ID, output)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var timeout <-chan time.Time
	if recordDuration > 0 {
		timeout = time.After(recordDuration)
	}
	select {
	case <-sigCh:
	case <-timeout:
	}

	if err := session.Stop(); err != nil {
		return err
	}
	if err := rec.Stop(); err != nil {
		return err
	}
	logger.WithComponent("record").Info().Uint64("frames", rec.Frames()).Str("path", output).Msg("recording finished")
	fmt.Printf("Wrote %d frames to %s\n", rec.Frames(), output)
	return nil
}
