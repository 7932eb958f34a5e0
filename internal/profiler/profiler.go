// Package profiler starts Google Cloud Profiler when explicitly enabled by
// environment, adapted from the teacher's internal/profiler/profiler.go.
package profiler

import (
	"os"

	"cloud.google.com/go/profiler"

	"github.com/tanneberger/reactor-go/internal/rlog"
)

// Version is the reactor-run build version reported to the profiling
// backend. Set at build time via -ldflags, defaulting to "dev".
var Version = "dev"

// Init starts the profiler iff GOOGLE_CLOUD_PROFILER_ENABLED is set.
func Init(svcName string) {
	if os.Getenv("GOOGLE_CLOUD_PROFILER_ENABLED") == "" {
		return
	}
	err := profiler.Start(profiler.Config{
		Service:        svcName,
		ServiceVersion: Version,
		MutexProfiling: true,
		AllocForceGC:   true,
	})
	if err != nil {
		rlog.Get().Warnw("could not initialize profiler", "error", err)
	}
}
