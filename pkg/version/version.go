// Package version holds build metadata injected at link time, e.g.
//
//	go build -ldflags "-X github.com/pvewatch/pvewatch/pkg/version.Version=v0.2.0"
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// GitCommit is the commit hash the binary was built from.
	GitCommit = "none"

	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)
