package version

// Version information for Prism
const (
	// Version is the current semantic version of the prism binary
	Version = "2.0.1"

	// SnapshotVersion is the on-disk index snapshot format version.
	// A loaded snapshot carrying any other value is discarded and the
	// index is rebuilt from scratch.
	SnapshotVersion = "2.0"

	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// Info returns version information as a string
func Info() string {
	return Version
}

// FullInfo returns detailed version information
func FullInfo() string {
	return "Prism " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
