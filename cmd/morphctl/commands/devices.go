package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/gogpu/morph"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"device", "ls"},
	Short:   "List compute devices",
	Long: `List the devices morph can run on, in the order used by device ids.
Hardware adapters come first; the CPU device is always last.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBACKEND\tTYPE\tMAX BUFFER")
	for _, d := range morph.Devices() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Backend, d.Type, humanize.IBytes(d.MaxBufferBytes))
	}
	return tw.Flush()
}
