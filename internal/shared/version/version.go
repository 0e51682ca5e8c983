// Package version exposes build metadata injected via -ldflags.
package version

// Set at build time: -ldflags "-X github.com/orris-inc/offramp/internal/shared/version.Current=v1.2.3".
var (
	Current = "dev"
	Commit  = "unknown"
)
