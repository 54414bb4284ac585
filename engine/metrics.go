package engine

import (
	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	rolloutsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrollout_rollouts_created_total",
		Help: "Rollouts accepted by the registry, by schedule type.",
	}, []string{"schedule_type"})

	rolloutRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrollout_rollout_rejections_total",
		Help: "Create requests rejected, by reason.",
	}, []string{"reason"})

	auditEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrollout_audit_entries_total",
		Help: "Audit entries appended, by action.",
	}, []string{"action"})

	deviceTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrollout_device_transitions_total",
		Help: "Per-device stage events, by stage and outcome.",
	}, []string{"stage", "status"})

	rolloutDevices = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleetrollout_rollout_devices",
		Help: "Devices per pipeline bucket for each rollout that has not finished.",
	}, []string{"rollout", "stage"})

	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetrollout_tick_duration_seconds",
		Help:    "Wall time of one advancement pass over all rollouts.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	tickErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetrollout_tick_rollout_errors_total",
		Help: "Rollouts whose advancement failed and was rolled back.",
	})
)

func init() {
	metrics.Registry.MustRegister(
		rolloutsCreated,
		rolloutRejections,
		auditEntries,
		deviceTransitions,
		rolloutDevices,
		tickDuration,
		tickErrors,
	)
}

// recordStageGauges publishes the bucket sizes of a live rollout. A terminal
// rollout no longer changes, so its series are dropped.
func recordStageGauges(r *v1alpha1.Rollout) {
	if r.IsTerminal() {
		rolloutDevices.DeletePartialMatch(prometheus.Labels{"rollout": r.ID})
		return
	}
	s := r.Stages
	for stage, v := range map[string]int{
		"remaining":   r.RemainingDevices,
		"scheduled":   s.Scheduled,
		"notified":    s.Notified,
		"downloading": s.Downloading,
		"installing":  s.Installing,
		"completed":   s.Completed,
		"failed":      s.Failed,
	} {
		rolloutDevices.WithLabelValues(r.ID, stage).Set(float64(v))
	}
}
