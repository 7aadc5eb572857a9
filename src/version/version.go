package version

import (
	"fmt"
	"runtime/debug"
)

// set with -ldflags "-X stockbot/src/version.Version=..."
var (
	Commit         = "unknown"
	Version        = "unknown"
	BuildTimestamp = "unknown"
)

func GetBuildInfo() map[string]string {
	data := make(map[string]string, 0)

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			data[s.Key] = s.Value
		}
		data["go_version"] = bi.GoVersion
	}

	data["commit"] = Commit
	data["version"] = Version
	data["build_timestamp"] = BuildTimestamp

	return data
}

// Summary is a one-line description for startup logs and -version output.
func Summary() string {
	commit := Commit
	if commit == "unknown" {
		if revision, ok := GetBuildInfo()["vcs.revision"]; ok {
			commit = revision
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("stockbot %s (commit %s, built %s)", Version, commit, BuildTimestamp)
}
