package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached cameras",
	Long:  `Start the driver instance, enumerate attached cameras, and print one line per device.`,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
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
		fmt.Println("No cameras attached.")
		return nil
	}
	fmt.Printf("%-12s %-20s %s\n", "ID", "MODEL", "SERIAL")
	for _, d := range devices {
		fmt.Printf("%-12s %-20s %s\n", d.ID, d.Model, d.Serial)
	}
	return nil
}
