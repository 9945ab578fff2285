package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ResolverCommand = "command"
	ResolverMock    = "mock"

	DefaultOutputFormat = "GeoJSON"
	DefaultOutputName   = "catchment"
	DefaultPrefix       = "catchment-"
	DefaultChunkBytes   = 32 << 10
	DefaultMetricsPath  = "/metrics"
)

// Error reports a required setting that is missing or malformed. It is fatal
// at startup; the service refuses to run without a usable configuration.
type Error struct {
	Section string
	Option  string
	Reason  string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("config does not define option %s in section %s", e.Option, e.Section)
	}
	return fmt.Sprintf("config option %s.%s: %s", e.Section, e.Option, e.Reason)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got yaml kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	if node.Tag == "!!null" {
		d.Duration = 0
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
		},
		Work: WorkspaceConfig{
			Prefix:     DefaultPrefix,
			StaleAfter: Duration{Duration: 6 * time.Hour},
		},
		Resolver: ResolverConfig{
			Type:         ResolverCommand,
			Timeout:      Duration{Duration: 5 * time.Minute},
			OutputFormat: DefaultOutputFormat,
			OutputName:   DefaultOutputName,
		},
		Response: ResponseConfig{
			ChunkBytes:  DefaultChunkBytes,
			ErrorFormat: ErrorFormatText,
		},
		Tracing: TracingConfig{
			SampleRatio: 0.1,
			ServiceName: "catchment",
		},
		Metrics: MetricsConfig{Path: DefaultMetricsPath},
	}
}

// Load reads the configuration once at startup. path wins over
// CATCHMENT_CONFIG_PATH, which wins over ./config/config.{yaml,yml,json}.
// Environment overrides are applied last, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(path)
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(os.Getenv("CATCHMENT_CONFIG_PATH"))
	}
	if cfgPath == "" {
		cfgPath = discover()
	}
	if cfgPath != "" {
		if err := decodeFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func discover() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	set := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	set("LOG_MODE", &cfg.Env)
	set("LOG_LEVEL", &cfg.LogLevel)
	set("CATCHMENT_HTTP_ADDR", &cfg.HTTP.Addr)
	set("NHDPLUS2_DB_PATH", &cfg.NHDPlus2.DBPath)
	set("NHDPLUS2_GAGELOC_PATH", &cfg.NHDPlus2.GageLocPath)
	set("NHDPLUS2_CATCHMENT_PATH", &cfg.NHDPlus2.CatchmentPath)
	set("CATCHMENT_WORKSPACE_ROOT", &cfg.Work.Root)
	set("CATCHMENT_RESOLVER_TYPE", &cfg.Resolver.Type)
	set("CATCHMENT_RESOLVER_COMMAND", &cfg.Resolver.Command)
	set("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_ENABLED")); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// Normalize fills defaults for zero values and rejects configurations the
// service cannot run with.
func (cfg *Config) Normalize() error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}

	cfg.NHDPlus2.DBPath = strings.TrimSpace(cfg.NHDPlus2.DBPath)
	cfg.NHDPlus2.GageLocPath = strings.TrimSpace(cfg.NHDPlus2.GageLocPath)
	cfg.NHDPlus2.CatchmentPath = strings.TrimSpace(cfg.NHDPlus2.CatchmentPath)
	if cfg.NHDPlus2.DBPath == "" {
		return &Error{Section: "nhdplus2", Option: "db_path"}
	}
	if cfg.NHDPlus2.GageLocPath == "" {
		return &Error{Section: "nhdplus2", Option: "gageloc_path"}
	}

	cfg.Work.Root = strings.TrimSpace(cfg.Work.Root)
	if cfg.Work.Root == "" {
		cfg.Work.Root = os.TempDir()
	}
	if strings.TrimSpace(cfg.Work.Prefix) == "" {
		cfg.Work.Prefix = DefaultPrefix
	}
	if strings.ContainsAny(cfg.Work.Prefix, `/\`) {
		return &Error{Section: "workspace", Option: "prefix", Reason: "must not contain path separators"}
	}
	if cfg.Work.StaleAfter.Duration < 0 {
		return &Error{Section: "workspace", Option: "stale_after", Reason: "must not be negative"}
	}

	r := &cfg.Resolver
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	switch r.Type {
	case "":
		r.Type = ResolverCommand
	case ResolverCommand, ResolverMock:
	default:
		return &Error{Section: "resolver", Option: "type", Reason: fmt.Sprintf("unsupported resolver type %q", r.Type)}
	}
	r.Command = strings.TrimSpace(r.Command)
	if r.Type == ResolverCommand && r.Command == "" {
		return &Error{Section: "resolver", Option: "command"}
	}
	if r.Timeout.Duration < 0 {
		return &Error{Section: "resolver", Option: "timeout", Reason: "must not be negative"}
	}
	if strings.TrimSpace(r.OutputFormat) == "" {
		r.OutputFormat = DefaultOutputFormat
	}
	if strings.TrimSpace(r.OutputName) == "" {
		r.OutputName = DefaultOutputName
	}
	if strings.ContainsAny(r.OutputName, `/\`) {
		return &Error{Section: "resolver", Option: "output_name", Reason: "must be a bare file name"}
	}

	if cfg.Response.ChunkBytes <= 0 {
		cfg.Response.ChunkBytes = DefaultChunkBytes
	}
	cfg.Response.ErrorFormat = strings.ToLower(strings.TrimSpace(cfg.Response.ErrorFormat))
	switch cfg.Response.ErrorFormat {
	case "":
		cfg.Response.ErrorFormat = ErrorFormatText
	case ErrorFormatText, ErrorFormatJSON:
	default:
		return &Error{Section: "response", Option: "error_format", Reason: fmt.Sprintf("unsupported format %q", cfg.Response.ErrorFormat)}
	}

	if cfg.Tracing.SampleRatio < 0 {
		cfg.Tracing.SampleRatio = 0
	}
	if cfg.Tracing.SampleRatio > 1 {
		cfg.Tracing.SampleRatio = 1
	}
	if strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		cfg.Tracing.ServiceName = "catchment"
	}

	cfg.Metrics.Path = strings.TrimSpace(cfg.Metrics.Path)
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return &Error{Section: "metrics", Option: "path", Reason: "must start with /"}
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}
