package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rolloutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rollouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		rollouts, err := newClient().ListRollouts(cmd.Context())
		if err != nil {
			return err
		}

		if len(rollouts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rollouts found")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSTATUS\tPROGRESS\tCOMPLETED\tFAILED\tTOTAL")
		for _, r := range rollouts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%d\t%d\t%d\n",
				r.ID,
				valueOrDash(r.Name),
				versionRange(r.FromVersion, r.ToVersion),
				statusLabel(&r),
				r.Progress,
				r.Stages.Completed,
				r.Stages.Failed,
				r.TotalDevices,
			)
		}
		return tw.Flush()
	},
}

func init() {
	rolloutCmd.AddCommand(rolloutListCmd)
}
