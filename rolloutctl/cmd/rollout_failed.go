package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var rolloutFailedCmd = &cobra.Command{
	Use:   "failed-devices <rolloutId>",
	Short: "List devices that failed installation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed, err := newClient().FailedDevices(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No failed devices")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DEVICE\tSTAGE\tREASON\tTIME")
		for _, f := range failed {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.DeviceID, f.Stage, f.Reason, f.Timestamp.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

func init() {
	rolloutCmd.AddCommand(rolloutFailedCmd)
}
