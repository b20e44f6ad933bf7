// Package version identifies a simlog build. Release builds set the variables with
// -ldflags, other builds fall back to the module and VCS data Go embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	devVersion  = "0.1.0-dev"
	devRevision = "HEAD"
)

var (
	AppName   = "simlog"
	Version   = devVersion
	Revision  = devRevision
	BuildDate = ""
)

// vcsStamp is the part of debug.BuildInfo a build is identified by.
type vcsStamp struct {
	module   string
	revision string
	modified bool
	time     string
}

func stampOf(info *debug.BuildInfo) vcsStamp {
	st := vcsStamp{module: info.Main.Version}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			st.revision = s.Value
		case "vcs.modified":
			st.modified = s.Value == "true"
		case "vcs.time":
			st.time = s.Value
		}
	}
	return st
}

// apply fills in every variable still holding its development default.
func (st vcsStamp) apply() {
	if (Version == devVersion || Version == "") && st.module != "" && st.module != "(devel)" {
		Version = strings.TrimPrefix(st.module, "v")
	}
	if (Revision == devRevision || Revision == "") && st.revision != "" {
		Revision = st.revision
		if st.modified {
			Revision += "-dirty"
		}
	}
	if BuildDate == "" {
		BuildDate = st.time
	}
}

// Short is `0.1.0 (5e23a4)`.
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

func ShortWithApp() string {
	return AppName + " " + Short()
}

// Detailed adds the toolchain, platform and build date: `0.1.0 (5e23a4; go1.23.6; linux/amd64; 2025-01-01T00:00:00Z)`.
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

func DetailedWithApp() string {
	return AppName + " " + Detailed()
}

// UserAgent is `simlog/0.1.0`.
func UserAgent() string {
	return AppName + "/" + Version
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		stampOf(info).apply()
	}
	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
