package config

import (
	"net"
	"strconv"
	"time"

	"github.com/dmarienko/kdbml/pkg/compression"
	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/observability"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatArrow = "arrow"
)

// Config is the kdbml configuration.
type Config struct {
	// Connection describes the kdb+ process to query
	Connection ConnectionConfig `yaml:"connection" json:"connection"`

	// Logging configures the global zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Observability settings for metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Output controls where and how converted values are written
	Output OutputConfig `yaml:"output" json:"output"`
}

// ConnectionConfig describes the kdb+ endpoint.
type ConnectionConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// User and Password are sent as "user:password" in the handshake.
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	// DialTimeout bounds connection setup and the handshake
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	// QueryTimeout bounds each request; 0 waits forever
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
	// MaxMessageSize caps a response, compressed or expanded, in bytes
	MaxMessageSize int `yaml:"max_message_size" json:"max_message_size"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Development bool     `yaml:"development" json:"development"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	OutputPaths []string `yaml:"output_paths,omitempty" json:"output_paths,omitempty"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics serves the prometheus registry on MetricsAddr
	EnableMetrics bool   `yaml:"enable_metrics" json:"enable_metrics"`
	MetricsAddr   string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing activates span export
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingExporter is "stdout" or "none"
	TracingExporter string `yaml:"tracing_exporter" json:"tracing_exporter"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// OutputConfig controls export.
type OutputConfig struct {
	// Format is json, csv or arrow
	Format string `yaml:"format" json:"format"`
	// Target is "-" for stdout, a file path, or an s3://, gs:// or kafka:// URL
	Target string `yaml:"target" json:"target"`
	// Compression names a compression algorithm; empty or "none" disables it
	Compression      string `yaml:"compression" json:"compression"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`
	// Region is used by s3:// targets when the environment does not set one
	Region string `yaml:"region" json:"region"`
}

// NewConfig returns a configuration with defaults for a local kdb+ process.
func NewConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Host:           "localhost",
			Port:           5001,
			DialTimeout:    10 * time.Second,
			QueryTimeout:   0,
			MaxMessageSize: kx.DefaultMaxMessageSize,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     false,
			MetricsAddr:       ":9090",
			EnableTracing:     false,
			TracingExporter:   "stdout",
			TracingSampleRate: 1.0,
		},
		Output: OutputConfig{
			Format:           FormatJSON,
			Target:           "-",
			Compression:      string(compression.None),
			CompressionLevel: int(compression.Default),
		},
	}
}

func invalid(format string, args ...interface{}) error {
	return kdbmlerrors.Newf(kdbmlerrors.ErrorTypeConfig, format, args...)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Connection.Host == "" {
		return invalid("connection.host is required")
	}
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return invalid("connection.port must be in 1..65535, got %d", c.Connection.Port)
	}
	if c.Connection.DialTimeout < 0 || c.Connection.QueryTimeout < 0 {
		return invalid("connection timeouts cannot be negative")
	}
	if c.Connection.MaxMessageSize < 0 {
		return invalid("connection.max_message_size cannot be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return invalid("logging.level %q is not a log level", c.Logging.Level)
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return invalid("observability.tracing_sample_rate must be in [0, 1], got %g", r)
	}
	switch c.Output.Format {
	case FormatJSON, FormatCSV, FormatArrow:
	default:
		return invalid("output.format %q must be json, csv or arrow", c.Output.Format)
	}
	if c.Output.Target == "" {
		return invalid("output.target is required")
	}
	if _, err := compression.Parse(c.Output.Compression); err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConfig, "output.compression")
	}
	return nil
}

// Address returns host:port of the kdb+ process.
func (c *ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Credentials returns the handshake credentials, "" when no user is set.
func (c *ConnectionConfig) Credentials() string {
	if c.User == "" {
		return ""
	}
	if c.Password == "" {
		return c.User
	}
	return c.User + ":" + c.Password
}

// Logger converts the logging section for logger.Init.
func (l *LoggingConfig) Logger() logger.Config {
	return logger.Config{
		Level:       l.Level,
		Development: l.Development,
		Encoding:    l.Encoding,
		OutputPaths: l.OutputPaths,
	}
}

// Tracing converts the observability section for observability.Init.
func (o *ObservabilityConfig) Tracing(version string) observability.TracingConfig {
	tc := observability.DefaultTracingConfig()
	tc.Enabled = o.EnableTracing
	tc.ServiceVersion = version
	tc.SamplingRate = o.TracingSampleRate
	if o.TracingExporter != "" {
		tc.Exporter = o.TracingExporter
	}
	return tc
}

// IsCompressionEnabled returns true if compression should be used
func (o *OutputConfig) IsCompressionEnabled() bool {
	a, err := compression.Parse(o.Compression)
	return err == nil && a != compression.None
}
