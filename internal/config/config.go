// Package config parses reactor-run's command-line flags and environment
// variables with peterbourgon/ff, the same flag/env layering the teacher
// uses for its indexserver's rootConfig (cmd/zoekt-sourcegraph-indexserver).
package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
)

// EnvPrefix is the prefix ff applies when mapping flags to environment
// variables, e.g. -workers becomes REACTOR_WORKERS.
const EnvPrefix = "REACTOR"

// Config holds reactor-run's runtime configuration.
type Config struct {
	Workers           int
	ReactionsPerLevel []int
	ListenAddr        string
	EnablePprof       bool
	DevLog            bool
	ServiceName       string
	WatchdogTimeout   time.Duration
}

// Parse parses args (typically os.Args[1:]) into a Config, applying
// REACTOR_-prefixed environment variables for any flag left unset.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("reactor-run", flag.ContinueOnError)

	var cfg Config
	var reactionsPerLevel string

	fs.IntVar(&cfg.Workers, "workers", 4, "number of worker goroutines")
	fs.StringVar(&reactionsPerLevel, "reactions-per-level", "", "comma-separated reaction count per level, sizes queue capacity and MaxReactionLevel")
	fs.StringVar(&cfg.ListenAddr, "listen", ":6060", "address the debug/metrics HTTP server listens on")
	fs.BoolVar(&cfg.EnablePprof, "debug", false, "enable /debug/pprof endpoints")
	fs.BoolVar(&cfg.DevLog, "dev-log", false, "use human-readable development logging instead of JSON")
	fs.StringVar(&cfg.ServiceName, "service-name", "reactor-run", "service name reported to tracing and profiling backends")
	fs.DurationVar(&cfg.WatchdogTimeout, "watchdog-timeout", 200*time.Millisecond, "MinExpiration for the demo runtime's tag-deadline watchdog")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return Config{}, err
	}

	if reactionsPerLevel != "" {
		levels, err := parseIntList(reactionsPerLevel)
		if err != nil {
			return Config{}, fmt.Errorf("parsing -reactions-per-level: %w", err)
		}
		cfg.ReactionsPerLevel = levels
	}

	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("-workers must be at least 1, got %d", cfg.Workers)
	}

	return cfg, nil
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
