package engine

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"strconv"
	"strings"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/conditions"
	"github.com/apollo/fleetrollout/pkg/version"
	"github.com/go-playground/validator/v10"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// specValidator checks the struct-level rules declared on RolloutSpec and
// reports them as field errors keyed by JSON path.
type specValidator struct {
	v *validator.Validate
}

func newSpecValidator() *specValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &specValidator{v: v}
}

func (s *specValidator) validate(spec *v1alpha1.RolloutSpec, root *field.Path) field.ErrorList {
	err := s.v.Struct(spec)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return field.ErrorList{field.InternalError(root, err)}
	}

	var errs field.ErrorList
	for _, fe := range verrs {
		path := root.Child(fe.Field())
		switch fe.Tag() {
		case "required", "required_if":
			errs = append(errs, field.Required(path, ""))
		case "oneof":
			errs = append(errs, field.NotSupported(path, fe.Value(), strings.Fields(fe.Param())))
		case "unique":
			errs = append(errs, field.Invalid(path, fe.Value(), "must not contain duplicates"))
		case "max":
			limit, _ := strconv.Atoi(fe.Param())
			errs = append(errs, field.TooLong(path, fe.Value(), limit))
		default:
			errs = append(errs, field.Invalid(path, fe.Value(), fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())))
		}
	}
	return errs
}

// CreateRollout validates spec and registers a new rollout. Rejections are
// returned as status errors and leave the registry untouched.
func (e *Engine) CreateRollout(spec v1alpha1.RolloutSpec) (*v1alpha1.Rollout, error) {
	spec = *spec.DeepCopy()
	if spec.ScheduleType == "" {
		spec.ScheduleType = v1alpha1.ScheduleImmediate
	}

	now := e.clock.Now()
	errs := e.validateSpec(&spec, now)
	if len(errs) > 0 {
		rolloutRejections.WithLabelValues("invalid").Inc()
		e.log.V(1).Info("rejected rollout", "name", spec.Name, "errors", errs.ToAggregate().Error())
		return nil, newInvalid(spec.Name, errs)
	}
	if e.transientFailure() {
		rolloutRejections.WithLabelValues("unavailable").Inc()
		e.log.Info("simulated backend unavailability", "name", spec.Name)
		return nil, newUnavailable()
	}

	total := spec.TotalDevices
	if total == 0 {
		total = len(spec.DeviceIDs)
	}

	id := e.newID()
	ent := &entry{
		rollout: v1alpha1.Rollout{
			ID:                    id,
			Name:                  spec.Name,
			FromVersion:           spec.FromVersion,
			ToVersion:             spec.ToVersion,
			Region:                spec.Region,
			DeviceGroup:           spec.DeviceGroup,
			TotalDevices:          total,
			ScheduleType:          spec.ScheduleType,
			ScheduledAt:           spec.ScheduledAt,
			PhasedPercentage:      spec.PhasedPercentage,
			PhasedIntervalMinutes: spec.PhasedIntervalMinutes,
			CreatedByRole:         spec.CreatedByRole,
			CreatedBy:             spec.CreatedBy,
		},
		deviceLog: make(map[string][]v1alpha1.DeviceEvent),
		rng:       rand.New(rand.NewPCG(e.seed, hashString(id))),
	}
	if len(spec.DeviceIDs) > 0 {
		ent.deviceIDs = spec.DeviceIDs
	} else {
		ent.deviceIDs = e.devices.DeviceIDs(id, total)
		if n := len(ent.deviceIDs); n != total {
			err := fmt.Errorf("device id source returned %d ids for %d devices", n, total)
			e.log.Error(err, "cannot resolve rollout devices", "rollout", id)
			return nil, apierrors.NewInternalError(err)
		}
	}

	tx := e.begin(ent)
	r := tx.rollout
	r.CreatedAt = metav1.NewTime(tx.now)
	r.Mandatory = spec.Mandatory && spec.CreatedByRole == v1alpha1.RoleAdmin
	if r.ScheduleType == v1alpha1.SchedulePhased {
		r.RemainingDevices = total
	} else {
		r.Stages.Scheduled = total
	}
	if spec.CreatedByRole == v1alpha1.RoleOps {
		r.Status = v1alpha1.RolloutPendingApproval
		conditions.MarkFalse(&r.Conditions, v1alpha1.ConditionApproved, v1alpha1.ReasonPendingApproval, "waiting for an administrator", tx.now)
	} else {
		r.Status = v1alpha1.RolloutScheduled
		conditions.MarkTrue(&r.Conditions, v1alpha1.ConditionApproved, v1alpha1.ReasonApprovalNotRequired, fmt.Sprintf("created by %s", spec.CreatedByRole), tx.now)
	}
	conditions.MarkFalse(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonAwaitingStart, "", tx.now)
	tx.appendAudit(v1alpha1.AuditCreated, spec.CreatedBy)

	if err := e.commit(ent, tx); err != nil {
		return nil, err
	}
	if err := e.insert(ent); err != nil {
		return nil, err
	}
	rolloutsCreated.WithLabelValues(string(r.ScheduleType)).Inc()
	return ent.rollout.DeepCopy(), nil
}

func (e *Engine) validateSpec(spec *v1alpha1.RolloutSpec, now time.Time) field.ErrorList {
	root := field.NewPath("spec")
	errs := e.validate.validate(spec, root)

	total := spec.TotalDevices
	if n := len(spec.DeviceIDs); n > 0 {
		if total == 0 {
			total = n
		} else if total != n {
			errs = append(errs, field.Invalid(root.Child("deviceIds"), n, fmt.Sprintf("must list exactly %d devices", total)))
		}
	}
	if total <= 0 {
		errs = append(errs, field.Invalid(root.Child("totalDevices"), total, "no devices match the rollout filter"))
	}
	if limit := e.policy.MaxDevicesPerRollout; total > limit {
		path := root.Child("totalDevices")
		if len(spec.DeviceIDs) > 0 {
			path = root.Child("deviceIds")
		}
		errs = append(errs, field.TooMany(path, total, limit))
	}

	if spec.ScheduleType == v1alpha1.ScheduleScheduled {
		switch {
		case spec.ScheduledAt == nil:
			errs = append(errs, field.Required(root.Child("scheduledAt"), "required for scheduled rollouts"))
		case !spec.ScheduledAt.Time.After(now):
			errs = append(errs, field.Invalid(root.Child("scheduledAt"), spec.ScheduledAt.Time.String(), "must be in the future"))
		}
	}

	if spec.FromVersion != "" && spec.ToVersion != "" && version.Compare(spec.ToVersion, spec.FromVersion) <= 0 {
		errs = append(errs, field.Invalid(root.Child("toVersion"), spec.ToVersion, fmt.Sprintf("must be higher than %s", spec.FromVersion)))
	}
	return errs
}

func (e *Engine) transientFailure() bool {
	if e.policy.TransientRejectionRate <= 0 {
		return false
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64() < e.policy.TransientRejectionRate
}
