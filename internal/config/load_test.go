package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CATCHMENT_CONFIG_PATH", "LOG_MODE", "LOG_LEVEL", "CATCHMENT_HTTP_ADDR",
		"NHDPLUS2_DB_PATH", "NHDPLUS2_GAGELOC_PATH", "NHDPLUS2_CATCHMENT_PATH",
		"CATCHMENT_WORKSPACE_ROOT", "CATCHMENT_RESOLVER_TYPE", "CATCHMENT_RESOLVER_COMMAND",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "METRICS_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "config.yaml", `
env: production
http:
  addr: ":9090"
  shutdown_timeout: 3s
nhdplus2:
  db_path: /data/NHDPlus.sqlite
  gageloc_path: /data/GageLoc.shp
workspace:
  root: /scratch
  stale_after: 30m
resolver:
  type: command
  command: /usr/local/bin/nhd-delineate
  timeout: 120000000000
response:
  error_format: JSON
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout.Duration)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.IdleTimeout.Duration, "default kept")
	assert.Equal(t, "/scratch", cfg.Work.Root)
	assert.Equal(t, 30*time.Minute, cfg.Work.StaleAfter.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Resolver.Timeout.Duration)
	assert.Equal(t, DefaultOutputFormat, cfg.Resolver.OutputFormat)
	assert.Equal(t, DefaultOutputName, cfg.Resolver.OutputName)
	assert.Equal(t, ErrorFormatJSON, cfg.Response.ErrorFormat)
	assert.Equal(t, DefaultChunkBytes, cfg.Response.ChunkBytes)
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "config.json", `{
		"nhdplus2": {"db_path": "/data/a.sqlite", "gageloc_path": "/data/g.shp"},
		"resolver": {"type": "mock", "timeout": "10s"}
	}`)
	t.Setenv("CATCHMENT_CONFIG_PATH", p)
	t.Setenv("NHDPLUS2_DB_PATH", "/override/db.sqlite")
	t.Setenv("CATCHMENT_HTTP_ADDR", ":7000")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/override/db.sqlite", cfg.NHDPlus2.DBPath)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, ResolverMock, cfg.Resolver.Type)
	assert.Equal(t, 10*time.Second, cfg.Resolver.Timeout.Duration)
	assert.Equal(t, os.TempDir(), cfg.Work.Root)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoadFailsFastOnMissingDatasetPaths(t *testing.T) {
	clearEnv(t)

	t.Run("db_path", func(t *testing.T) {
		p := writeFile(t, "c.yaml", "nhdplus2:\n  gageloc_path: /g\nresolver:\n  type: mock\n")
		_, err := Load(p)
		var cerr *Error
		require.True(t, errors.As(err, &cerr), "got %v", err)
		assert.Equal(t, "db_path", cerr.Option)
		assert.Equal(t, "config does not define option db_path in section nhdplus2", cerr.Error())
	})

	t.Run("gageloc_path", func(t *testing.T) {
		p := writeFile(t, "c.yaml", "nhdplus2:\n  db_path: /d\nresolver:\n  type: mock\n")
		_, err := Load(p)
		var cerr *Error
		require.True(t, errors.As(err, &cerr), "got %v", err)
		assert.Equal(t, "gageloc_path", cerr.Option)
	})
}

func TestNormalizeRejects(t *testing.T) {
	base := func() *Config {
		c := Default()
		c.NHDPlus2 = NHDPlus2Config{DBPath: "/d", GageLocPath: "/g"}
		c.Resolver.Type = ResolverMock
		return c
	}

	cases := map[string]func(c *Config){
		"command without executable": func(c *Config) { c.Resolver.Type = ResolverCommand },
		"unknown resolver":           func(c *Config) { c.Resolver.Type = "grass" },
		"unknown error format":       func(c *Config) { c.Response.ErrorFormat = "xml" },
		"prefix with separator":      func(c *Config) { c.Work.Prefix = "a/b" },
		"output name with separator": func(c *Config) { c.Resolver.OutputName = "../catchment" },
		"relative metrics path":      func(c *Config) { c.Metrics.Path = "metrics" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			var cerr *Error
			assert.True(t, errors.As(c.Normalize(), &cerr))
		})
	}

	assert.NoError(t, base().Normalize())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "c.yaml", "nhdplus2:\n  db_path: /d\n  gageloc_path: /g\n  bogus: 1\n")
	_, err := Load(p)
	require.Error(t, err)
}
