package main

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/apollo/fleetrollout/engine"
	"github.com/apollo/fleetrollout/gateway"
	"github.com/apollo/fleetrollout/pkg/log"
	"github.com/apollo/fleetrollout/pkg/version"
	"github.com/apollo/fleetrollout/scheduler"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/manager"
)

func main() {
	var addr string
	var authToken string
	var authTokenSecret string
	var policyFile string
	var tickInterval time.Duration
	var seed uint64

	flag.StringVar(&addr, "addr", ":8080", "address to serve the rollout API, probes and metrics")
	flag.StringVar(&authToken, "api-token", os.Getenv("FLEETROLLOUT_API_TOKEN"), "Shared token expected in X-Api-Token header")
	flag.StringVar(&authTokenSecret, "api-token-secret", os.Getenv("FLEETROLLOUT_API_TOKEN_SECRET"), "Optional HMAC secret for per-actor tokens")
	flag.StringVar(&policyFile, "policy-file", os.Getenv("FLEETROLLOUT_POLICY_FILE"), "YAML file overriding the simulation policy")
	flag.DurationVar(&tickInterval, "tick-interval", scheduler.DefaultInterval, "Pause between two advancement passes")
	flag.Uint64Var(&seed, "seed", envUint("FLEETROLLOUT_SEED", uint64(time.Now().UnixNano())), "Seed for failure selection and device ids")

	setupLog := log.BindFlags(flag.CommandLine)
	flag.Parse()
	setupLog()

	logger := ctrl.Log.WithName("setup")
	logger.Info("starting rollout daemon", "addr", addr, "version", version.Version, "commit", version.Commit, "seed", seed)

	policy, err := engine.LoadPolicy(policyFile)
	if err != nil {
		logger.Error(err, "unable to load policy")
		os.Exit(1)
	}

	eng, err := engine.New(engine.Options{Policy: &policy, Seed: seed})
	if err != nil {
		logger.Error(err, "unable to create engine")
		os.Exit(1)
	}

	active := eng.Policy()
	logger.Info("simulation policy loaded",
		"stepFraction", active.StepFraction,
		"installFailureRate", active.InstallFailureRate,
		"transientRejectionRate", active.TransientRejectionRate,
		"phaseIntervalUnit", active.PhaseIntervalUnit.Duration,
		"maxDevicesPerRollout", active.MaxDevicesPerRollout,
		"shiftPhaseOnResume", active.ShiftPhaseOnResume)

	runnables := []manager.Runnable{
		gateway.New(eng, addr, authToken, authTokenSecret),
		scheduler.New(eng, tickInterval),
	}

	ctx := ctrl.SetupSignalHandler()
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runnables {
		g.Go(func() error { return r.Start(ctx) })
	}
	if err := g.Wait(); err != nil {
		logger.Error(err, "problem running rollout daemon")
		os.Exit(1)
	}
}

func envUint(key string, fallback uint64) uint64 {
	v, err := strconv.ParseUint(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
