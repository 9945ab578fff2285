package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// CORSAllowedOrigins enables CORS for browser clients when non-empty.
	CORSAllowedOrigins []string `json:"cors_allowed_origins,omitempty" yaml:"cors_allowed_origins,omitempty"`
}

// NHDPlus2Config locates the hydrographic dataset consumed by the resolver.
type NHDPlus2Config struct {
	DBPath        string `json:"db_path" yaml:"db_path"`
	GageLocPath   string `json:"gageloc_path" yaml:"gageloc_path"`
	CatchmentPath string `json:"catchment_path,omitempty" yaml:"catchment_path,omitempty"`
}

type WorkspaceConfig struct {
	// Root is the process-wide scratch root. Empty means os.TempDir().
	Root   string `json:"root,omitempty" yaml:"root,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// StaleAfter is the age after which leftover workspaces are swept at startup.
	// Zero disables the sweep.
	StaleAfter Duration `json:"stale_after,omitempty" yaml:"stale_after,omitempty"`
}

type ResolverConfig struct {
	// Type is "command" (external delineation tool) or "mock".
	Type string `json:"type" yaml:"type"`

	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// OutputFormat is the vector driver requested from the resolver.
	OutputFormat string `json:"output_format,omitempty" yaml:"output_format,omitempty"`
	// OutputName is the base name, without extension, of the produced artifact.
	OutputName string `json:"output_name,omitempty" yaml:"output_name,omitempty"`

	// ArtifactJSONPath, when set, treats the tool's stdout as a JSON status
	// document and selects the artifact name with this expression.
	ArtifactJSONPath string `json:"artifact_jsonpath,omitempty" yaml:"artifact_jsonpath,omitempty"`
}

const (
	ErrorFormatText = "text"
	ErrorFormatJSON = "json"
)

type ResponseConfig struct {
	ChunkBytes int `json:"chunk_bytes,omitempty" yaml:"chunk_bytes,omitempty"`

	// ErrorFormat is "text" (plain-text message) or "json" ({"message": ...}).
	ErrorFormat string `json:"error_format,omitempty" yaml:"error_format,omitempty"`

	// LegacyStatus answers every error with 200 OK instead of 400/500.
	LegacyStatus bool `json:"legacy_status,omitempty" yaml:"legacy_status,omitempty"`
}

type TracingConfig struct {
	Enabled     bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure    bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRatio float64 `json:"sample_ratio,omitempty" yaml:"sample_ratio,omitempty"`
	ServiceName string  `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

type Config struct {
	Env      string          `json:"env" yaml:"env"`
	LogLevel string          `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	HTTP     HTTPConfig      `json:"http" yaml:"http"`
	NHDPlus2 NHDPlus2Config  `json:"nhdplus2" yaml:"nhdplus2"`
	Work     WorkspaceConfig `json:"workspace" yaml:"workspace"`
	Resolver ResolverConfig  `json:"resolver" yaml:"resolver"`
	Response ResponseConfig  `json:"response" yaml:"response"`
	Tracing  TracingConfig   `json:"tracing" yaml:"tracing"`
	Metrics  MetricsConfig   `json:"metrics" yaml:"metrics"`
}
