// Package log wires controller-runtime's zap backed logr logger for the
// rollout binaries.
package log

import (
	"flag"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// BindFlags registers the zap options on fs and returns a Setup function to
// call after flag parsing.
func BindFlags(fs *flag.FlagSet) func() logr.Logger {
	opts := zap.Options{Development: true}
	opts.BindFlags(fs)
	return func() logr.Logger {
		logger := zap.New(zap.UseFlagOptions(&opts))
		log.SetLogger(logger)
		return logger
	}
}
