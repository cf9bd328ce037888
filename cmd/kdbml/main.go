package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/config"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/observability"
)

var version = "0.1.0"

// flags shared by every command that talks to kdb+ or writes output
type flags struct {
	configFile  string
	host        string
	port        int
	user        string
	timeout     time.Duration
	format      string
	output      string
	compression string
	logLevel    string
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "kdbml",
		Short: "kdbml - query kdb+ and convert results to host values",
		Long: `kdbml sends a q query to a kdb+ process, converts the answer into
MATLAB-style values (doubles, logicals, chars, cells and structs) and
writes them as JSON, CSV or Arrow to stdout, a file, S3, GCS or Kafka.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "Path to YAML configuration file")
	pf.StringVar(&f.host, "host", "", "kdb+ host (overrides config)")
	pf.IntVar(&f.port, "port", 0, "kdb+ port (overrides config)")
	pf.StringVar(&f.user, "user", "", "Handshake credentials as user[:password]")
	pf.DurationVar(&f.timeout, "timeout", 0, "Query timeout, e.g. 30s (0 waits forever)")
	pf.StringVarP(&f.format, "format", "f", "", "Output format: json, csv or arrow")
	pf.StringVarP(&f.output, "output", "o", "", "Output target: -, a path, s3://, gs:// or kafka:// URL")
	pf.StringVar(&f.compression, "compression", "", "Output compression: gzip, snappy, s2, zstd, lz4, deflate")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kdbml v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newQueryCmd(f), newDecodeCmd(f))
	return root
}

// loadConfig reads the config file, if any, and applies command line
// overrides on top.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.NewConfig()
	if f.configFile != "" {
		if err := config.Load(f.configFile, cfg); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Connection.Host = f.host
	}
	if changed("port") {
		cfg.Connection.Port = f.port
	}
	if changed("user") {
		cfg.Connection.User, cfg.Connection.Password = splitCredentials(f.user)
	}
	if changed("timeout") {
		cfg.Connection.QueryTimeout = f.timeout
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("output") {
		cfg.Output.Target = f.output
	}
	if changed("compression") {
		cfg.Output.Compression = f.compression
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitCredentials(s string) (user, password string) {
	user, password, _ = strings.Cut(s, ":")
	return user, password
}

// setup installs logging, tracing and the metrics endpoint. The returned
// function flushes and stops them.
func setup(cfg *config.Config) (func(), error) {
	if err := logger.Init(cfg.Logging.Logger()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := observability.Init(cfg.Observability.Tracing(version)); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var server *metrics.Server
	if cfg.Observability.EnableMetrics {
		server = metrics.NewServer(cfg.Observability.MetricsAddr, logger.Get())
		server.StartAsync()
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if server != nil {
			_ = server.Shutdown(ctx)
		}
		if err := observability.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
		_ = logger.Sync()
	}, nil
}
