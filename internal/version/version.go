// Package version holds build-time identifiers, overridden via -ldflags
// -X at release build time; "dev" otherwise.
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
)
