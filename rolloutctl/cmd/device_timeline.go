package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Inspect devices",
}

var deviceTimelineCmd = &cobra.Command{
	Use:   "timeline <deviceId>",
	Short: "Show a device's update timeline across rollouts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := newClient().DeviceTimeline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No events for device %s\n", args[0])
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tROLLOUT\tSTAGE\tSTATUS\tREASON")
		for _, ev := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				ev.Timestamp.Format(time.RFC3339),
				ev.RolloutID,
				ev.Stage,
				ev.Status,
				valueOrDash(ev.FailureReason),
			)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceTimelineCmd)
}
