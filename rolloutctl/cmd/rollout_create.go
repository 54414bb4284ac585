package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
)

var (
	createName          string
	createFromVersion   string
	createToVersion     string
	createRegion        string
	createDeviceGroup   string
	createTotalDevices  int
	createDeviceIDs     []string
	createMandatory     bool
	createScheduleType  string
	createScheduledAt   string
	createPhasedPercent int
	createPhasedMinutes int
)

var rolloutCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new rollout",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := v1alpha1.RolloutSpec{
			Name:                  createName,
			FromVersion:           createFromVersion,
			ToVersion:             createToVersion,
			Region:                createRegion,
			DeviceGroup:           createDeviceGroup,
			TotalDevices:          createTotalDevices,
			DeviceIDs:             createDeviceIDs,
			Mandatory:             createMandatory,
			ScheduleType:          v1alpha1.ScheduleType(createScheduleType),
			PhasedPercentage:      createPhasedPercent,
			PhasedIntervalMinutes: createPhasedMinutes,
		}
		if createScheduledAt != "" {
			at, err := time.Parse(time.RFC3339, createScheduledAt)
			if err != nil {
				return fmt.Errorf("invalid --scheduled-at %q: %w", createScheduledAt, err)
			}
			t := metav1.NewTime(at)
			spec.ScheduledAt = &t
		}

		created, err := newClient().CreateRollout(cmd.Context(), spec)
		if err != nil {
			return err
		}
		printRollout(cmd.OutOrStdout(), created)
		return nil
	},
}

func init() {
	rolloutCmd.AddCommand(rolloutCreateCmd)
	f := rolloutCreateCmd.Flags()
	f.StringVar(&createName, "name", "", "Rollout name")
	f.StringVar(&createFromVersion, "from", "", "Version devices run today")
	f.StringVar(&createToVersion, "to", "", "Version to roll out")
	f.StringVar(&createRegion, "region", "", "Target region")
	f.StringVar(&createDeviceGroup, "group", "", "Target device group")
	f.IntVar(&createTotalDevices, "devices", 0, "Number of matching devices")
	f.StringSliceVar(&createDeviceIDs, "device-id", nil, "Matching device ids (repeatable)")
	f.BoolVar(&createMandatory, "mandatory", false, "Mark the update as mandatory (ADMIN only)")
	f.StringVar(&createScheduleType, "schedule", string(v1alpha1.ScheduleImmediate), "immediate, scheduled or phased")
	f.StringVar(&createScheduledAt, "scheduled-at", "", "Start time for scheduled rollouts (RFC3339)")
	f.IntVar(&createPhasedPercent, "phase-percent", 0, "Share of the fleet admitted per phase")
	f.IntVar(&createPhasedMinutes, "phase-interval", 0, "Minutes between phases")
	rolloutCreateCmd.MarkFlagRequired("to")
}
