package cmd

import (
	"github.com/spf13/cobra"
)

var rolloutGetCmd = &cobra.Command{
	Use:   "get <rolloutId>",
	Short: "Get rollout details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rollout, err := newClient().GetRollout(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printRollout(cmd.OutOrStdout(), rollout)
		printAudit(cmd.OutOrStdout(), rollout.AuditLog)
		return nil
	},
}

func init() {
	rolloutCmd.AddCommand(rolloutGetCmd)
}
