// Package config loads addresskit's configuration, following the
// teacher's layered precedence in pkg/config/config.go: defaults, then
// an optional YAML file, then environment variables. addresskit has no
// per-user or per-system config file search path — one file, pointed to
// by ADDRESSKIT_CONFIG_FILE, is enough for an ingestion/query service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all addresskit configuration.
type Config struct {
	GNAFDir        string   `yaml:"gnaf_dir"`
	CoveredStates  []string `yaml:"covered_states"`
	EnableGeo      bool     `yaml:"enable_geo"`
	LoadingChunkMB int      `yaml:"loading_chunk_mb"`

	ESAddresses []string `yaml:"es_addresses"`
	ESIndexName string   `yaml:"es_index_name"`

	IndexTimeout          time.Duration `yaml:"index_timeout"`
	IndexBackoff          time.Duration `yaml:"index_backoff"`
	IndexBackoffIncrement time.Duration `yaml:"index_backoff_increment"`
	IndexBackoffMax       time.Duration `yaml:"index_backoff_max"`

	PageSize int `yaml:"page_size"`

	CheckpointBackend   string `yaml:"checkpoint_backend"`
	CheckpointFilePath  string `yaml:"checkpoint_file_path"`
	CheckpointRedisAddr string `yaml:"checkpoint_redis_addr"`

	MirrorBucket string `yaml:"mirror_bucket"`
	MirrorRegion string `yaml:"mirror_region"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// RegionSet is the closed set of valid G-NAF region codes (spec.md §4.8).
var RegionSet = []string{"ACT", "NSW", "NT", "OT", "QLD", "SA", "TAS", "VIC", "WA"}

// Default returns addresskit's default configuration.
func Default() *Config {
	return &Config{
		GNAFDir:        "./gnaf",
		CoveredStates:  append([]string{}, RegionSet...),
		EnableGeo:      true,
		LoadingChunkMB: 10,

		ESAddresses: []string{"http://localhost:9200"},
		ESIndexName: "addresskit",

		IndexTimeout:          30 * time.Second,
		IndexBackoff:          30 * time.Second,
		IndexBackoffIncrement: 30 * time.Second,
		IndexBackoffMax:       600 * time.Second,

		PageSize: 8,

		CheckpointBackend:  "file",
		CheckpointFilePath: "target/run-checkpoint.msgpack",

		LogLevel: "info",
	}
}

// Load builds a Config from defaults, an optional YAML file at
// ADDRESSKIT_CONFIG_FILE, and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ADDRESSKIT_CONFIG_FILE"); path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	loadEnv(cfg)
	cfg.CoveredStates = sanitizeRegions(cfg.CoveredStates)

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}
	merge(cfg, &partial)
	return nil
}

func merge(dst, src *Config) {
	if src.GNAFDir != "" {
		dst.GNAFDir = src.GNAFDir
	}
	if len(src.CoveredStates) > 0 {
		dst.CoveredStates = src.CoveredStates
	}
	if len(src.ESAddresses) > 0 {
		dst.ESAddresses = src.ESAddresses
	}
	if src.ESIndexName != "" {
		dst.ESIndexName = src.ESIndexName
	}
	if src.IndexTimeout != 0 {
		dst.IndexTimeout = src.IndexTimeout
	}
	if src.IndexBackoff != 0 {
		dst.IndexBackoff = src.IndexBackoff
	}
	if src.IndexBackoffIncrement != 0 {
		dst.IndexBackoffIncrement = src.IndexBackoffIncrement
	}
	if src.IndexBackoffMax != 0 {
		dst.IndexBackoffMax = src.IndexBackoffMax
	}
	if src.LoadingChunkMB != 0 {
		dst.LoadingChunkMB = src.LoadingChunkMB
	}
	if src.PageSize != 0 {
		dst.PageSize = src.PageSize
	}
	if src.CheckpointBackend != "" {
		dst.CheckpointBackend = src.CheckpointBackend
	}
	if src.CheckpointFilePath != "" {
		dst.CheckpointFilePath = src.CheckpointFilePath
	}
	if src.CheckpointRedisAddr != "" {
		dst.CheckpointRedisAddr = src.CheckpointRedisAddr
	}
	if src.MirrorBucket != "" {
		dst.MirrorBucket = src.MirrorBucket
	}
	if src.MirrorRegion != "" {
		dst.MirrorRegion = src.MirrorRegion
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.MetricsAddr != "" {
		dst.MetricsAddr = src.MetricsAddr
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("GNAF_DIR"); v != "" {
		cfg.GNAFDir = v
	}
	if v := os.Getenv("COVERED_STATES"); v != "" {
		cfg.CoveredStates = strings.Split(v, ",")
	}
	if v := os.Getenv("ADDRESSKIT_ENABLE_GEO"); v != "" {
		cfg.EnableGeo = v == "1"
	}
	if v := os.Getenv("ADDRESSKIT_LOADING_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoadingChunkMB = n
		}
	}
	if v := os.Getenv("ADDRESSKIT_ES_ADDRESSES"); v != "" {
		cfg.ESAddresses = strings.Split(v, ",")
	}
	if v := os.Getenv("ES_INDEX_NAME"); v != "" {
		cfg.ESIndexName = v
	}
	if v := os.Getenv("ADDRESSKIT_INDEX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IndexTimeout = d
		}
	}
	if v := os.Getenv("ADDRESSKIT_INDEX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IndexBackoff = d
		}
	}
	if v := os.Getenv("ADDRESSKIT_INDEX_BACKOFF_INCREMENT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IndexBackoffIncrement = d
		}
	}
	if v := os.Getenv("ADDRESSKIT_INDEX_BACKOFF_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IndexBackoffMax = d
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("ADDRESSKIT_CHECKPOINT_BACKEND"); v != "" {
		cfg.CheckpointBackend = v
	}
	if v := os.Getenv("ADDRESSKIT_CHECKPOINT_REDIS_ADDR"); v != "" {
		cfg.CheckpointRedisAddr = v
	}
	if v := os.Getenv("ADDRESSKIT_MIRROR_BUCKET"); v != "" {
		cfg.MirrorBucket = v
	}
	if v := os.Getenv("ADDRESSKIT_MIRROR_REGION"); v != "" {
		cfg.MirrorRegion = v
	}
	if v := os.Getenv("ADDRESSKIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ADDRESSKIT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// sanitizeRegions implements spec.md §7's configuration error kind: any
// invalid entry in COVERED_STATES collapses the whole filter to all
// regions, rather than silently dropping just the bad entries.
func sanitizeRegions(regions []string) []string {
	valid := make(map[string]bool, len(RegionSet))
	for _, r := range RegionSet {
		valid[r] = true
	}
	for _, r := range regions {
		if !valid[strings.ToUpper(strings.TrimSpace(r))] {
			return append([]string{}, RegionSet...)
		}
	}
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		out = append(out, strings.ToUpper(strings.TrimSpace(r)))
	}
	return out
}

// MirrorEnabled reports whether the archive mirror (C11) should be used.
func (c *Config) MirrorEnabled() bool {
	return c.MirrorBucket != ""
}
