// Package engine implements the rollout orchestration engine: the registry of
// rollouts, the approval gate, lifecycle commands, phased admission, the
// per-tick stage pipeline and the audit and device event logs.
//
// Every rollout is owned by an entry with its own mutex. Commands and tick
// advancement on the same rollout are linearised through that mutex, while
// different rollouts advance in parallel. Mutations run against a working
// copy and are committed only when they complete and the device
// counts still balance, so readers never observe a partial
// update.
package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/clock"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Clock supplies the current time.
	Clock clock.PassiveClock
	// Policy overrides DefaultPolicy.
	Policy *Policy
	// Seed makes failure selection and transient rejections reproducible.
	Seed uint64
	// DeviceIDs resolves identifiers when a spec only carries a count.
	DeviceIDs DeviceIDSource
	// NewID generates rollout and audit entry ids.
	NewID func() string
	// Logger receives structured engine logs.
	Logger logr.Logger
}

// Engine is the authoritative in-memory rollout registry.
type Engine struct {
	clock    clock.PassiveClock
	policy   Policy
	seed     uint64
	devices  DeviceIDSource
	newID    func() string
	log      logr.Logger
	validate *specValidator

	mu       sync.RWMutex
	rollouts map[string]*entry
	order    []*entry

	rngMu sync.Mutex
	rng   *rand.Rand
}

// entry owns one rollout and everything recorded about it.
type entry struct {
	mu sync.Mutex

	rollout   v1alpha1.Rollout
	deviceIDs []string
	deviceLog map[string][]v1alpha1.DeviceEvent
	failed    []v1alpha1.FailedDevice
	rng       *rand.Rand
	lastStamp time.Time
}

// New constructs an Engine.
func New(opts Options) (*Engine, error) {
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.DeviceIDs == nil {
		opts.DeviceIDs = FleetDeviceIDs{Seed: opts.Seed}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = ctrllog.Log.WithName("engine")
	}

	return &Engine{
		clock:    opts.Clock,
		policy:   policy,
		seed:     opts.Seed,
		devices:  opts.DeviceIDs,
		newID:    opts.NewID,
		log:      opts.Logger,
		validate: newSpecValidator(),
		rollouts: make(map[string]*entry),
		rng:      rand.New(rand.NewPCG(opts.Seed, 0)),
	}, nil
}

// Policy returns the active simulation policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// GetRollout returns a snapshot of one rollout.
func (e *Engine) GetRollout(id string) (*v1alpha1.Rollout, error) {
	ent, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.rollout.DeepCopy(), nil
}

// ListRollouts returns snapshots of every rollout in creation order.
func (e *Engine) ListRollouts() []v1alpha1.Rollout {
	entries := e.entries()
	out := make([]v1alpha1.Rollout, len(entries))
	for i, ent := range entries {
		ent.mu.Lock()
		ent.rollout.DeepCopyInto(&out[i])
		ent.mu.Unlock()
	}
	return out
}

func (e *Engine) lookup(id string) (*entry, error) {
	e.mu.RLock()
	ent, ok := e.rollouts[id]
	e.mu.RUnlock()
	if !ok {
		return nil, newNotFound(id)
	}
	return ent, nil
}

func (e *Engine) entries() []*entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*entry(nil), e.order...)
}

func (e *Engine) insert(ent *entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rollouts[ent.rollout.ID]; exists {
		return apierrors.NewAlreadyExists(v1alpha1.RolloutResource, ent.rollout.ID)
	}
	e.rollouts[ent.rollout.ID] = ent
	e.order = append(e.order, ent)
	return nil
}

// update applies fn to a working copy of the rollout under its lock and
// commits the result. fn leaving the copy untouched is a no-op.
func (e *Engine) update(id string, fn func(tx *txn) error) (*v1alpha1.Rollout, error) {
	ent, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	tx := e.begin(ent)
	if err := fn(tx); err != nil {
		return nil, err
	}
	if err := e.commit(ent, tx); err != nil {
		return nil, err
	}
	return ent.rollout.DeepCopy(), nil
}

// txn is a pending change to one rollout. Callers hold the entry lock.
type txn struct {
	engine  *Engine
	entry   *entry
	rollout *v1alpha1.Rollout
	now     time.Time
	dirty   bool
	audit   []v1alpha1.AuditEntry
	events  []v1alpha1.DeviceEvent
	failed  []v1alpha1.FailedDevice
}

func (e *Engine) begin(ent *entry) *txn {
	now := e.clock.Now()
	// Keep per-rollout timestamps non-decreasing even if the wall clock steps back.
	if now.Before(ent.lastStamp) {
		now = ent.lastStamp
	}
	return &txn{
		engine:  e,
		entry:   ent,
		rollout: ent.rollout.DeepCopy(),
		now:     now,
	}
}

func (tx *txn) stamp() *metav1.Time {
	t := metav1.NewTime(tx.now)
	return &t
}

func (tx *txn) touch() {
	tx.dirty = true
}

func (e *Engine) commit(ent *entry, tx *txn) error {
	if !tx.dirty {
		return nil
	}
	r := tx.rollout
	if r.Stages.Sum()+r.RemainingDevices != r.TotalDevices || hasNegativeStage(r.Stages) || r.RemainingDevices < 0 {
		return fmt.Errorf("rollout %s: %w (stages=%+v remaining=%d total=%d)", r.ID, errConservation, r.Stages, r.RemainingDevices, r.TotalDevices)
	}
	if r.TotalDevices > 0 {
		r.Progress = r.Stages.Finished() * 100 / r.TotalDevices
	}

	ent.rollout = *r
	ent.lastStamp = tx.now
	for _, ev := range tx.events {
		ent.deviceLog[ev.DeviceID] = append(ent.deviceLog[ev.DeviceID], ev)
	}
	ent.failed = append(ent.failed, tx.failed...)

	e.emit(tx)
	return nil
}

func hasNegativeStage(s v1alpha1.StageCounts) bool {
	return s.Scheduled < 0 || s.Notified < 0 || s.Downloading < 0 || s.Installing < 0 || s.Completed < 0 || s.Failed < 0
}
