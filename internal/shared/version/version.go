// Package version carries the build version stamped in at link time.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Set with -ldflags "-X github.com/orris-inc/paybridge/internal/shared/version.Version=1.4.0".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	if version == "" {
		return ""
	}
	version = strings.TrimSpace(version)
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// Current returns the canonical build version, or "dev" for unstamped builds.
func Current() string {
	v := Normalize(Version)
	if !semver.IsValid(v) {
		return "dev"
	}
	return semver.Canonical(v)
}

// String renders version, commit and build time for the CLI.
func String() string {
	var b strings.Builder
	b.WriteString(Current())
	if Commit != "" {
		b.WriteString(" (" + Commit + ")")
	}
	if BuildTime != "" {
		b.WriteString(" built " + BuildTime)
	}
	return b.String()
}
