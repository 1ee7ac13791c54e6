// Package version exposes build-time version metadata.
package version

// Overridden at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
