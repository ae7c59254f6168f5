package commands

import (
	"fmt"
	"strconv"

	"github.com/gogpu/morph"
	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset [device-id]",
	Short: "Release every buffer held on a device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetAll {
			if len(args) > 0 {
				return fmt.Errorf("--all takes no device id")
			}
			return morph.ResetAllDevices()
		}
		if len(args) == 0 {
			return fmt.Errorf("device id or --all required")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid device id %q", args[0])
		}
		return morph.ResetDevice(id)
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "reset every device")
	rootCmd.AddCommand(resetCmd)
}
