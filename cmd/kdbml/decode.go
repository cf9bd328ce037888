package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/convert"
	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/observability"
)

func newDecodeCmd(f *flags) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Convert a captured kdb+ IPC message offline",
		Long: `Decode a kdb+ IPC message saved to a file (header included) and export
the converted value, without connecting to kdb+.

Example:
  kdbml decode --input response.bin -f json`,
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

			log := logger.Get().With(zap.String("component", "kdbml-cli"))
			data, err := os.ReadFile(input) //nolint:gosec // G304: path comes from the --input flag
			if err != nil {
				return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "read input").WithDetail("path", input)
			}

			ctx, span := observability.StartSpan(cmd.Context(), "decode")
			span.SetAttribute("bytes", len(data))
			x, _, err := kx.Decode(data)
			span.Fail(err)
			span.End()
			if err != nil {
				return err
			}
			defer x.Release()
			log.Debug("decoded message", zap.Int("bytes", len(data)), zap.Stringer("type", x.Type))

			collector := metrics.NewCollector("cli")
			res := convert.New(log, convert.WithCollector(collector)).DispatchContext(ctx, x)
			return finish(ctx, cfg, res, collector)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the IPC message file (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
