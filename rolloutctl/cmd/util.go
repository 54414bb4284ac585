package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
)

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func versionRange(from, to string) string {
	if from == "" {
		return valueOrDash(to)
	}
	return from + " -> " + valueOrDash(to)
}

func statusLabel(r *v1alpha1.Rollout) string {
	if r.IsPaused && !r.IsTerminal() {
		return string(r.Status) + " (paused)"
	}
	return string(r.Status)
}

func formatTime(t *metav1.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func printRollout(w io.Writer, r *v1alpha1.Rollout) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", valueOrDash(r.Name))
	fmt.Fprintf(tw, "Version:\t%s\n", versionRange(r.FromVersion, r.ToVersion))
	fmt.Fprintf(tw, "Target:\t%s / %s\n", valueOrDash(r.Region), valueOrDash(r.DeviceGroup))
	fmt.Fprintf(tw, "Schedule:\t%s\n", r.ScheduleType)
	fmt.Fprintf(tw, "Status:\t%s\n", statusLabel(r))
	fmt.Fprintf(tw, "Mandatory:\t%t\n", r.Mandatory)
	fmt.Fprintf(tw, "Created By:\t%s (%s)\n", valueOrDash(r.CreatedBy), r.CreatedByRole)
	fmt.Fprintf(tw, "Progress:\t%d%% of %d devices\n", r.Progress, r.TotalDevices)
	s := r.Stages
	fmt.Fprintf(tw, "Stages:\tscheduled=%d notified=%d downloading=%d installing=%d completed=%d failed=%d\n",
		s.Scheduled, s.Notified, s.Downloading, s.Installing, s.Completed, s.Failed)
	if r.ScheduleType == v1alpha1.SchedulePhased {
		fmt.Fprintf(tw, "Phase:\t%d (remaining %d, next %s)\n", r.CurrentPhase, r.RemainingDevices, formatTime(r.NextPhaseAt))
	}
	fmt.Fprintf(tw, "Started:\t%s\n", formatTime(r.StartedAt))
	fmt.Fprintf(tw, "Completed:\t%s\n", formatTime(r.CompletedAt))
	_ = tw.Flush()
}

func printAudit(w io.Writer, entries []v1alpha1.AuditEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w, "Audit:")
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, a := range entries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", a.Timestamp.Format(time.RFC3339), a.Action, a.PerformedBy)
	}
	_ = tw.Flush()
}
