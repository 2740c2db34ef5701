package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/config"
	"github.com/acuvio/camlink/internal/dispatch"
	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sdk"
	"github.com/acuvio/camlink/internal/sdk/sim"
)

// stack is the assembled camera plumbing shared by the subcommands.
type stack struct {
	cfg      config.Config
	loop     dispatch.Loop
	runner   *camera.InstanceRunner
	registry *camera.DeviceRegistry
}

// loadConfig builds the configuration manager and applies flag overrides.
func loadConfig() (*config.Manager, error) {
	cfgMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			cfgMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			cfgMgr.SetLogLevel(level)
		}
	}
	if viper.IsSet("dispatcher") {
		if d := viper.GetString("dispatcher"); d != "" {
			cfgMgr.SetDispatcher(d)
		}
	}
	return cfgMgr, nil
}

// buildStack selects the owner-loop binding, starts it, and brings the
// driver instance up. The environment selector takes precedence over flag
// and config file.
func buildStack(cfgMgr *config.Manager) (*stack, error) {
	cfg := cfgMgr.Get()
	logger.Init(cfg.LogLevel, true)

	binding := os.Getenv(dispatch.EnvBinding)
	if binding == "" {
		binding = cfg.Dispatcher
	}
	loop, err := dispatch.Select(binding)
	if err != nil {
		return nil, err
	}
	if err := loop.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s loop: %w", loop.Name(), err)
	}
	logger.WithComponent("main").Info().Str("binding", loop.Name()).Msg("owner loop started")

	runner := camera.NewInstanceRunner(demoDriver(), loop)
	registry := camera.NewDeviceRegistry(runner)
	if err := runner.Start(); err != nil {
		loop.Stop()
		return nil, fmt.Errorf("failed to start driver instance: %w", err)
	}

	return &stack{cfg: cfg, loop: loop, runner: runner, registry: registry}, nil
}

func (s *stack) shutdown() {
	if err := s.runner.Stop(); err != nil {
		logger.WithComponent("main").Error().Err(err).Msg("driver instance stop failed")
	}
	if err := s.loop.Stop(); err != nil {
		logger.WithComponent("main").Error().Err(err).Msg("owner loop stop failed")
	}
}

// demoDriver builds the simulated driver the daemon runs against. A vendor
// binding implementing sdk.Driver plugs in here instead.
func demoDriver() sdk.Driver {
	return sim.NewDriver(
		sim.DeviceConfig{
			ID:            "CAM-0001",
			Model:         "SimCam 1200m",
			Serial:        "SN-4F1A22",
			Width:         640,
			Height:        480,
			Format:        sdk.Mono8,
			FrameInterval: 33 * time.Millisecond,
		},
		sim.DeviceConfig{
			ID:            "CAM-0002",
			Model:         "SimCam 2400c",
			Serial:        "SN-9B07C3",
			Width:         320,
			Height:        240,
			Format:        sdk.RGB8,
			FrameInterval: 66 * time.Millisecond,
		},
	)
}
