package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/acuvio/camlink/internal/api"
	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sink"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camlink daemon",
	Long: `Start the camlink daemon: driver instance, device registry, one camera
session, and the HTTP control surface with a live MJPEG preview at /stream.`,
	Example: `  # Start on the default port (8080)
  camlink serve

  # Custom port, debug logging
  camlink serve --port 9090 --log-level debug

  # Force the pure-Go owner loop
  camlink serve --dispatcher native`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := buildStack(cfgMgr)
	if err != nil {
		return err
	}
	defer st.shutdown()

	log := logger.WithComponent("serve")

	session := camera.NewCameraSession(st.registry)
	defer func() {
		if session.State() == camera.SessionStreaming {
			if err := session.Stop(); err != nil {
				log.Error().Err(err).Msg("session stop failed")
			}
		}
		if err := session.SetDevice(nil); err != nil {
			log.Error().Err(err).Msg("session device release failed")
		}
	}()

	preview := sink.NewMJPEGSink(sink.MJPEGConfig{
		Width:   st.cfg.Stream.Width,
		Height:  st.cfg.Stream.Height,
		Quality: st.cfg.Stream.Quality,
	})
	if err := preview.Start(); err != nil {
		return err
	}
	defer preview.Stop()
	if _, err := session.AddSink(preview); err != nil {
		return err
	}

	server := api.NewServer(st.registry, session, st.loop, preview)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(st.cfg.ServerPort)
	}()

	fmt.Printf("camlink listening on http://localhost:%d (preview at /stream)\n", st.cfg.ServerPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
