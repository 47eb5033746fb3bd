// Package version carries build metadata for the crptapi binary.
// The variables are injected with -ldflags at release time.
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	// Version is the release tag or short commit.
	// Set via: -ldflags "-X crptapi/internal/version.Version=..."
	Version = "dev"

	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"

	// GitCommit is the source commit SHA.
	GitCommit = "unknown"
)

// Info holds build metadata plus per-process identity.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns build metadata. InstanceID and Hostname are resolved once
// per process.
func GetInfo() Info {
	once.Do(func() {
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.New().String(),
			Hostname:   hostname(),
		}
	})
	return info
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

// UserAgent is sent with every outgoing API request.
func (i Info) UserAgent() string {
	return "crptapi/" + i.Version
}

// String formats version info for CLI display.
func (i Info) String() string {
	return fmt.Sprintf("crptapi %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildDate)
}
