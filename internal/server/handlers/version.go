package handlers

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/jmail/domaincheck/internal/appid"
)

// BuildInfo is stamped into the binary by the linker.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// SetBuildInfo records the values reported by /version. Empty fields keep
// their previous value.
func SetBuildInfo(info BuildInfo) {
	buildMu.Lock()
	defer buildMu.Unlock()
	if info.Version != "" {
		build.Version = info.Version
	}
	if info.Commit != "" {
		build.Commit = info.Commit
	}
	if info.BuildDate != "" {
		build.BuildDate = info.BuildDate
	}
}

// CurrentBuildInfo returns the recorded build values.
func CurrentBuildInfo() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return build
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo     `json:"app"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

// AppInfo describes the running binary.
type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// DepInfo lists framework versions.
type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// RuntimeInfo describes the host process.
type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler serves GET /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	binaryName, _, _ := appid.Names(r.Context())
	info := CurrentBuildInfo()
	deps := crucible.GetVersion()

	writeJSON(w, http.StatusOK, VersionResponse{
		App: AppInfo{
			Name:      binaryName,
			Version:   info.Version,
			Commit:    info.Commit,
			BuildDate: info.BuildDate,
			GoVersion: runtime.Version(),
		},
		Dependencies: DepInfo{
			Gofulmen: deps.Gofulmen,
			Crucible: deps.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
