// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"log/slog"
	"runtime"
)

// set via -ldflags "-X github.com/capbench/capbench/internal/version.version=..."
var (
	version   string
	buildTime string
	gitCommit string
)

type VersionInfo struct {
	Version   string
	BuildTime string
	GitCommit string

	GoVersion string
	GoOS      string
	GoArch    string
}

// Info returns the version information
func Info() VersionInfo {
	v := version
	if v == "" {
		v = "dev"
	}
	return VersionInfo{
		Version:   v,
		BuildTime: buildTime,
		GitCommit: gitCommit,

		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
}

// Log writes the build information of binary name at info level
func Log(logger *slog.Logger, name string) {
	v := Info()
	logger.Info("version information",
		"binary", name,
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}
