package config_test

import (
	"os"
	"testing"

	"github.com/addresskit/addresskit/internal/config"
)

func clearEnv(t *testing.T) {
	keys := []string{
		"ADDRESSKIT_CONFIG_FILE", "GNAF_DIR", "COVERED_STATES",
		"ADDRESSKIT_ENABLE_GEO", "ADDRESSKIT_LOADING_CHUNK_SIZE",
		"ADDRESSKIT_ES_ADDRESSES", "ES_INDEX_NAME", "ADDRESSKIT_INDEX_TIMEOUT",
		"ADDRESSKIT_INDEX_BACKOFF", "ADDRESSKIT_INDEX_BACKOFF_INCREMENT",
		"ADDRESSKIT_INDEX_BACKOFF_MAX", "PAGE_SIZE", "ADDRESSKIT_CHECKPOINT_BACKEND",
		"ADDRESSKIT_CHECKPOINT_REDIS_ADDR", "ADDRESSKIT_MIRROR_BUCKET",
		"ADDRESSKIT_MIRROR_REGION", "ADDRESSKIT_LOG_LEVEL", "ADDRESSKIT_METRICS_ADDR",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoad_DefaultsWithoutEnv(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ESIndexName != "addresskit" {
		t.Errorf("ESIndexName = %q, want addresskit", cfg.ESIndexName)
	}
	if cfg.PageSize != 8 {
		t.Errorf("PageSize = %d, want 8", cfg.PageSize)
	}
	if len(cfg.CoveredStates) != len(config.RegionSet) {
		t.Errorf("CoveredStates = %v, want all regions", cfg.CoveredStates)
	}
	if cfg.MirrorEnabled() {
		t.Error("MirrorEnabled() = true with no bucket configured")
	}
}

func TestLoad_InvalidCoveredStateCollapsesToAllRegions(t *testing.T) {
	clearEnv(t)
	t.Setenv("COVERED_STATES", "NSW,BOGUS")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CoveredStates) != len(config.RegionSet) {
		t.Errorf("CoveredStates = %v, want the full region set after an invalid entry", cfg.CoveredStates)
	}
}

func TestLoad_ValidCoveredStatesAreUppercasedAndTrimmed(t *testing.T) {
	clearEnv(t)
	t.Setenv("COVERED_STATES", " nsw ,vic")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"NSW", "VIC"}
	if len(cfg.CoveredStates) != len(want) || cfg.CoveredStates[0] != want[0] || cfg.CoveredStates[1] != want[1] {
		t.Errorf("CoveredStates = %v, want %v", cfg.CoveredStates, want)
	}
}

func TestLoad_MirrorEnabledWhenBucketSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDRESSKIT_MIRROR_BUCKET", "gnaf-mirror")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.MirrorEnabled() {
		t.Error("MirrorEnabled() = false with a bucket configured")
	}
}

func TestLoad_EnvOverridesIndexBackoffSchedule(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDRESSKIT_INDEX_BACKOFF", "10s")
	t.Setenv("ADDRESSKIT_INDEX_BACKOFF_INCREMENT", "5s")
	t.Setenv("ADDRESSKIT_INDEX_BACKOFF_MAX", "60s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IndexBackoff.String() != "10s" || cfg.IndexBackoffIncrement.String() != "5s" || cfg.IndexBackoffMax.String() != "1m0s" {
		t.Errorf("backoff schedule = %v/%v/%v, want 10s/5s/1m0s", cfg.IndexBackoff, cfg.IndexBackoffIncrement, cfg.IndexBackoffMax)
	}
}
