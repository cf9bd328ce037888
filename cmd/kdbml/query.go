package main

import (
	"context"
	"net"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/bridge"
	"github.com/dmarienko/kdbml/pkg/config"
	"github.com/dmarienko/kdbml/pkg/convert"
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
)

func newQueryCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "query [q expression]",
		Short: "Run a query against kdb+ and export the result",
		Long: `Run a q query against a kdb+ process and export the converted result.

Example:
  kdbml query --host tick --port 5010 -f csv -o trades.csv.gz --compression gzip \
    "select from trade where date=.z.d"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			teardown, err := setup(cfg)
			if err != nil {
				return err
			}
			defer teardown()

			return runQuery(cmd.Context(), cfg, strings.Join(args, " "))
		},
	}
}

func newDialer(cfg *config.Config, log *zap.Logger) bridge.KxDialer {
	nd := net.Dialer{Timeout: cfg.Connection.DialTimeout}
	return bridge.KxDialer{Options: []kx.DialOption{
		kx.WithCredentials(cfg.Connection.Credentials()),
		kx.WithTimeout(cfg.Connection.QueryTimeout),
		kx.WithMaxMessageSize(cfg.Connection.MaxMessageSize),
		kx.WithLogger(log),
		kx.WithDialFunc(nd.DialContext),
	}}
}

// hostArgs builds the host calling convention: a struct with host and port
// fields followed by the query.
func hostArgs(cfg *config.Config, q string) ([]mx.Array, error) {
	target, err := mx.NewStruct("host", "port")
	if err != nil {
		return nil, err
	}
	target.SetFieldAt(0, mx.NewString(cfg.Connection.Host))
	target.SetFieldAt(1, mx.NewDoubleScalar(float64(cfg.Connection.Port)))
	return []mx.Array{target, mx.NewString(q)}, nil
}

func runQuery(ctx context.Context, cfg *config.Config, q string) error {
	log := logger.Get().With(zap.String("component", "kdbml-cli"))
	collector := metrics.NewCollector("cli")

	b := bridge.New(newDialer(cfg, log), log, bridge.WithCollector(collector))
	args, err := hostArgs(cfg, q)
	if err != nil {
		return err
	}
	res, err := b.Call(ctx, args...)
	if err != nil {
		return err
	}
	return finish(ctx, cfg, res, collector)
}

// finish exports a successful result or returns its error.
func finish(ctx context.Context, cfg *config.Config, res convert.Result, collector *metrics.Collector) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Degraded() {
		logger.Warn("result has empty slots", zap.Int("diagnostics", len(res.Diagnostics)))
	}
	return writeOutput(ctx, cfg, res.Value, collector)
}
