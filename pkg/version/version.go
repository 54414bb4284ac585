// Package version carries build metadata and the dotted version comparator
// used to reject downgrades.
package version

var (
	// Version is set at build time via -ldflags.
	Version = "v0.0.0"
	// Commit is the git SHA if provided at build time.
	Commit = ""
)

// String renders the build metadata for logs and the CLI.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
