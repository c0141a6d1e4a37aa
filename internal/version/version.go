// Package version holds build metadata injected via ldflags.
package version

import (
	"runtime/debug"
	"strings"
)

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "version (commit, date)". Without ldflags
// the commit and date fall back to the VCS stamp of the Go build info.
func String() string {
	commit, date := Commit, Date
	if commit == "unknown" || date == "unknown" {
		c, d := vcsStamp()
		if commit == "unknown" && c != "" {
			commit = c
		}
		if date == "unknown" && d != "" {
			date = d
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return Version + " (" + commit + ", " + date + ")"
}

func vcsStamp() (revision, date string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			date = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && revision != "" && !strings.HasSuffix(revision, "-dirty") {
		revision += "-dirty"
	}
	return revision, date
}
