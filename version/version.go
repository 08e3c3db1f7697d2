// Package version reports the version of the bats build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/vsariola/bats/version.Version=$(git describe --dirty)"

var Version string

var Hash = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		modified := false
		for _, setting := range info.Settings {
			if setting.Key == "vcs.modified" && setting.Value == "true" {
				modified = true
				break
			}
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				shortHash := setting.Value[:7]
				if modified {
					return shortHash + "-dirty"
				}
				return shortHash
			}
		}
	}
	return ""
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "dev"
}()

// String is the one line version banner of the command line tool.
func String() string {
	return fmt.Sprintf("bats %v (%v, %v/%v)", VersionOrHash, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
