package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var rolloutWatchCmd = &cobra.Command{
	Use:   "watch <rolloutId>",
	Short: "Watch rollout progress until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		c := newClient()

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			rollout, err := c.GetRollout(cmd.Context(), id)
			if err != nil {
				return err
			}

			s := rollout.Stages
			fmt.Fprintf(cmd.OutOrStdout(),
				"[%s] %s | %s | %d%% | scheduled=%d notified=%d downloading=%d installing=%d completed=%d failed=%d remaining=%d\n",
				time.Now().Format(time.RFC3339),
				rollout.ID,
				statusLabel(rollout),
				rollout.Progress,
				s.Scheduled, s.Notified, s.Downloading, s.Installing, s.Completed, s.Failed,
				rollout.RemainingDevices,
			)

			if rollout.IsTerminal() {
				return nil
			}

			select {
			case <-ticker.C:
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}
	},
}

func init() {
	rolloutCmd.AddCommand(rolloutWatchCmd)
	rolloutWatchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Polling interval")
}
