package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/layout"
)

// isolate points the global and project lookups at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Strategy != layout.StrategyClustered {
		t.Errorf("Layout.Strategy = %q, want clustered", cfg.Layout.Strategy)
	}
	if cfg.Layout.RankGap != layout.DefaultRankGap {
		t.Errorf("Layout.RankGap = %v, want %v", cfg.Layout.RankGap, layout.DefaultRankGap)
	}
	if !cfg.Layout.RegroupEnabled() {
		t.Error("regroup should default to enabled")
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 300ms", cfg.Watch.Debounce)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Chdir(t.TempDir())

	writeFile(t, filepath.Join(xdg, GlobalConfigDir, GlobalConfigFile), `
layout:
  strategy: columnar
  column_width: 300
cache:
  backend: none
`)
	writeFile(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
layout:
  column_width: 320
watch:
  debounce: 1s
`)

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Strategy != layout.StrategyColumnar {
		t.Errorf("Strategy = %q, want columnar from global file", cfg.Layout.Strategy)
	}
	if cfg.Layout.ColumnWidth != 320 {
		t.Errorf("ColumnWidth = %v, want 320 from project file", cfg.Layout.ColumnWidth)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Cache.Backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Watch.Debounce = %v, want 1s", cfg.Watch.Debounce)
	}
	if cfg.Layout.RankGap != layout.DefaultRankGap {
		t.Errorf("untouched RankGap = %v, want default", cfg.Layout.RankGap)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
layout:
  regroup: false
server:
  addr: ":9090"
`)

	v := viper.New()
	v.Set("config", path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.RegroupEnabled() {
		t.Error("regroup: false should disable regrouping")
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	isolate(t)
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load(v)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	writeFile(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), "layout:\n  rank_gap: 150\n")
	t.Setenv("TRACEMAP_LAYOUT_RANK_GAP", "200")
	t.Setenv("TRACEMAP_CACHE_BACKEND", "redis")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.RankGap != 200 {
		t.Errorf("RankGap = %v, want 200 from env", cfg.Layout.RankGap)
	}
	if cfg.Cache.Backend != BackendRedis {
		t.Errorf("Cache.Backend = %q, want redis from env", cfg.Cache.Backend)
	}
}

func TestLoad_FlagWins(t *testing.T) {
	isolate(t)
	t.Setenv("TRACEMAP_LAYOUT_ENGINE", "native")

	v := viper.New()
	v.Set("layout.engine", "dot")
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Engine != layout.EngineDot {
		t.Errorf("Engine = %q, want dot", cfg.Layout.Engine)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	isolate(t)
	writeFile(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), "layout: [unterminated")

	if _, err := Load(viper.New()); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, false},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }, false},
		{"redis with url", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.RedisURL = "redis://localhost:6379/0"
		}, true},
		{"negative spacing", func(c *Config) { c.Layout.RankGap = -1 }, false},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, false},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
