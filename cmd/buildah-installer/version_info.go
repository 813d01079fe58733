package main

import (
	"runtime/debug"
)

const shortRevisionLength = 7

var readBuildInfo = debug.ReadBuildInfo

// initVersion fills version from build info unless GoReleaser set it at link time
func initVersion() {
	if version != defaultVersion {
		return
	}

	info, ok := readBuildInfo()
	if !ok || info == nil {
		return
	}
	version = versionFromBuildInfo(info)
}

// versionFromBuildInfo prefers the module version; source builds get "dev+<revision>"
func versionFromBuildInfo(info *debug.BuildInfo) string {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var revision string
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return defaultVersion
	}
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}
	if dirty {
		revision += "-dirty"
	}
	return defaultVersion + "+" + revision
}
