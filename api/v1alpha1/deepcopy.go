package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *RolloutSpec) DeepCopyInto(out *RolloutSpec) {
	*out = *in
	if in.DeviceIDs != nil {
		in, out := &in.DeviceIDs, &out.DeviceIDs
		*out = make([]string, len(*in))
		copy(*out, *in)
	}
	if in.ScheduledAt != nil {
		in, out := &in.ScheduledAt, &out.ScheduledAt
		*out = (*in).DeepCopy()
	}
}

// DeepCopy copies the receiver, creating a new RolloutSpec.
func (in *RolloutSpec) DeepCopy() *RolloutSpec {
	if in == nil {
		return nil
	}
	out := new(RolloutSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *Rollout) DeepCopyInto(out *Rollout) {
	*out = *in
	if in.ScheduledAt != nil {
		in, out := &in.ScheduledAt, &out.ScheduledAt
		*out = (*in).DeepCopy()
	}
	if in.NextPhaseAt != nil {
		in, out := &in.NextPhaseAt, &out.NextPhaseAt
		*out = (*in).DeepCopy()
	}
	in.CreatedAt.DeepCopyInto(&out.CreatedAt)
	for _, pair := range []struct{ in, out **metav1.Time }{
		{&in.ApprovedAt, &out.ApprovedAt},
		{&in.StartedAt, &out.StartedAt},
		{&in.PausedAt, &out.PausedAt},
		{&in.ResumedAt, &out.ResumedAt},
		{&in.CompletedAt, &out.CompletedAt},
		{&in.CancelledAt, &out.CancelledAt},
	} {
		if *pair.in != nil {
			*pair.out = (*pair.in).DeepCopy()
		}
	}
	if in.Conditions != nil {
		in, out := &in.Conditions, &out.Conditions
		*out = make([]metav1.Condition, len(*in))
		for i := range *in {
			(*in)[i].DeepCopyInto(&(*out)[i])
		}
	}
	if in.AuditLog != nil {
		in, out := &in.AuditLog, &out.AuditLog
		*out = make([]AuditEntry, len(*in))
		for i := range *in {
			(*in)[i].DeepCopyInto(&(*out)[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new Rollout.
func (in *Rollout) DeepCopy() *Rollout {
	if in == nil {
		return nil
	}
	out := new(Rollout)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *AuditEntry) DeepCopyInto(out *AuditEntry) {
	*out = *in
	in.Timestamp.DeepCopyInto(&out.Timestamp)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *DeviceEvent) DeepCopyInto(out *DeviceEvent) {
	*out = *in
	in.Timestamp.DeepCopyInto(&out.Timestamp)
}
