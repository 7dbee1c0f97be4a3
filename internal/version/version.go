// Package version carries the build information stamped in by the linker.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// AppName is the binary and service name
const AppName = "git-activity-hook"

const (
	shortCommitLength = 7
	unknownValue      = "unknown"
)

// Build-time variables set by linker flags
var (
	Version = "dev"
	Commit  = unknownValue
	Date    = unknownValue
)

// BuildInfo contains build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information
func Get() *BuildInfo {
	return &BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the build info on one line, skipping unknown fields
func (bi *BuildInfo) String() string {
	parts := []string{AppName, bi.Version}
	if bi.Commit != unknownValue && bi.Commit != "" {
		commit := bi.Commit
		if len(commit) > shortCommitLength {
			commit = commit[:shortCommitLength]
		}
		parts = append(parts, "("+commit+")")
	}
	if bi.Date != unknownValue && bi.Date != "" {
		parts = append(parts, "built "+bi.Date)
	}
	parts = append(parts, "with "+bi.GoVersion, "for "+bi.Platform)
	return strings.Join(parts, " ")
}
