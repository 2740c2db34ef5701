package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "camlink",
		Short: "camlink - event-loop bridge for acquisition cameras",
		Long: `camlink bridges a callback-driven camera-acquisition driver to an
event-loop application. The driver instance is hosted on a dedicated worker
thread; frames delivered on the driver's internal callback thread are
marshaled onto a single owner loop and fanned out to registered sinks.

Features:
  • Device enumeration with hot-plug change events
  • Streaming sessions with an explicit state machine
  • Depth-1 backpressure: the freshest frame wins, no backlog
  • Live get/set of named camera features
  • MJPEG browser preview, PNG snapshots, Matroska recording
  • REST API and websocket event stream`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/camlink/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("dispatcher", "", "owner loop binding (glib, native; default auto-detect)")

	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("dispatcher", rootCmd.PersistentFlags().Lookup("dispatcher"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}
