package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	rc := Load(viper.New())
	if rc.MemoryHeadroomPct != 20 {
		t.Fatalf("default MemoryHeadroomPct = %d, want 20", rc.MemoryHeadroomPct)
	}
	if rc.StatsCacheMode != CacheAuto {
		t.Fatalf("default StatsCacheMode = %q, want auto", rc.StatsCacheMode)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAX_JOBS", "3")
	t.Setenv("STATS_CACHE_MODE", "force")
	rc := Load(viper.New())
	if rc.MaxJobs != 3 {
		t.Fatalf("MaxJobs = %d, want 3", rc.MaxJobs)
	}
	if rc.StatsCacheMode != CacheForce {
		t.Fatalf("StatsCacheMode = %q, want force", rc.StatsCacheMode)
	}
}

func TestMemoryHeadroomClamped(t *testing.T) {
	t.Setenv("MEMORY_HEADROOM_PCT", "5")
	rc := Load(viper.New())
	if rc.MemoryHeadroomPct != 10 {
		t.Fatalf("MemoryHeadroomPct = %d, want clamped to 10", rc.MemoryHeadroomPct)
	}
}
