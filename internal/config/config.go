// Package config assembles the RunContext shared by every engine from
// environment variables and command flags, via viper's env-first,
// flag-overridable precedence chain.
package config

import (
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// CacheMode selects the stats-cache regeneration policy.
type CacheMode string

const (
	CacheAuto  CacheMode = "auto"
	CacheForce CacheMode = "force"
	CacheNone  CacheMode = "none"
)

// RunContext is the explicit, read-only-after-construction configuration
// threaded through every component, replacing the process-wide globals
// spec.md §9 calls out as the thing to reshape.
type RunContext struct {
	MaxJobs              int
	MemoryHeadroomPct    int
	ChunkMemoryMB        int // 0 = auto from sample, -1 = CPU-based, >0 = fixed MB
	StatsCacheMode       CacheMode
	StatsStringMaxLength int
	AntimodesLen         int

	Logger *slog.Logger
}

// Load builds a RunContext from the environment, defaulting fields per
// spec.md §6, then lets v (if non-nil) override with flag bindings that
// were already set on it by the caller.
func Load(v *viper.Viper) *RunContext {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("max_jobs", runtime.NumCPU())
	v.SetDefault("memory_headroom_pct", 20)
	v.SetDefault("chunk_memory_mb", -1)
	v.SetDefault("stats_cache_mode", string(CacheAuto))
	v.SetDefault("stats_string_max_length", 0)
	v.SetDefault("antimodes_len", 0)

	rc := &RunContext{
		MaxJobs:              clampInt(v.GetInt("max_jobs"), 1, 4096),
		MemoryHeadroomPct:    clampInt(v.GetInt("memory_headroom_pct"), 10, 90),
		ChunkMemoryMB:        v.GetInt("chunk_memory_mb"),
		StatsCacheMode:       normalizeCacheMode(v.GetString("stats_cache_mode")),
		StatsStringMaxLength: v.GetInt("stats_string_max_length"),
		AntimodesLen:         v.GetInt("antimodes_len"),
		Logger:               slog.Default(),
	}
	return rc
}

func normalizeCacheMode(s string) CacheMode {
	switch CacheMode(strings.ToLower(s)) {
	case CacheForce:
		return CacheForce
	case CacheNone:
		return CacheNone
	default:
		return CacheAuto
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
