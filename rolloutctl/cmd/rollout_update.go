package cmd

import (
	"context"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/client"
)

type rolloutCommand func(c *client.RolloutClient, ctx context.Context, id string) (*v1alpha1.Rollout, error)

func newRolloutCommand(use, short string, run rolloutCommand) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rolloutId>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rollout, err := run(newClient(), cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRollout(cmd.OutOrStdout(), rollout)
			return nil
		},
	}
}

func init() {
	rolloutCmd.AddCommand(
		newRolloutCommand("approve", "Approve a rollout waiting for approval (ADMIN)", (*client.RolloutClient).ApproveRollout),
		newRolloutCommand("pause", "Pause a rollout", (*client.RolloutClient).PauseRollout),
		newRolloutCommand("resume", "Resume a paused rollout", (*client.RolloutClient).ResumeRollout),
		newRolloutCommand("cancel", "Cancel a rollout for good", (*client.RolloutClient).CancelRollout),
	)
}
