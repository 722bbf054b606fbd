package version

import (
	"runtime/debug"
	"strings"
)

// Version is the current application version.
// This is a var (not const) so it can be overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/conductor-dashboard/pkg/version.Version=v1.2.3"
var Version = "v0.1.0"

// Commit is the VCS revision, filled from build info when available.
var Commit = ""

// Get returns Version with the short commit appended when known, e.g.
// "v0.1.0 (3f2a9c1)".
func Get() string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	v := strings.TrimSpace(Version)
	if commit == "" {
		return v
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return v + " (" + commit + ")"
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
