package main

import (
	"context"

	"github.com/dmarienko/kdbml/pkg/compression"
	"github.com/dmarienko/kdbml/pkg/config"
	"github.com/dmarienko/kdbml/pkg/export"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
	"github.com/dmarienko/kdbml/pkg/observability"
	"github.com/dmarienko/kdbml/pkg/sink"
)

// writeOutput exports v to the configured target.
func writeOutput(ctx context.Context, cfg *config.Config, v mx.Array, collector *metrics.Collector) error {
	write, err := export.ForFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	alg, err := compression.Parse(cfg.Output.Compression)
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "export")
	defer span.End()
	span.SetAttribute("format", cfg.Output.Format)
	span.SetAttribute("target", cfg.Output.Target)

	s, err := sink.Open(ctx, cfg.Output.Target, sink.Options{
		Compression: alg,
		Level:       compression.Level(cfg.Output.CompressionLevel),
		Region:      cfg.Output.Region,
		Logger:      logger.Get(),
	})
	if err != nil {
		span.Fail(err)
		return err
	}
	if err := write(s, v); err != nil {
		span.Fail(err)
		return err
	}
	if err := s.Close(); err != nil {
		span.Fail(err)
		return err
	}

	span.SetAttribute("bytes", s.Written())
	collector.RecordExport(cfg.Output.Format, s.Target().Scheme, s.Written())
	return nil
}
