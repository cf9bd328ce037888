// Package kdbml converts kdb+ query results into MATLAB-style host values
// and exports them.
//
// The module is organised as a small stack:
//
//	pkg/kx          - K object model, IPC codec and the kdb+ client connection
//	pkg/mx          - host arrays: logical, double, char, cell and struct
//	pkg/convert     - the conversion dispatcher with temporal and null rules
//	pkg/bridge      - argument validation and the dial, query, convert, close cycle
//	pkg/export      - JSON, CSV and Arrow IPC writers for converted values
//	pkg/sink        - stdout, file, S3, GCS and Kafka destinations
//	pkg/compression - codecs applied by sinks
//	pkg/config      - YAML configuration with environment substitution
//	pkg/logger      - zap logging
//	pkg/metrics     - prometheus collectors and the metrics server
//	pkg/observability - OpenTelemetry tracing
//
// A query from the command line:
//
//	kdbml query --host tick.internal --port 5010 -f csv -o trades.csv 'select from trade'
//
// Programmatic use goes through bridge.Bridge:
//
//	b := bridge.New(bridge.KxDialer{}, logger.Get())
//	res := b.Run(ctx, bridge.Args{Host: "localhost", Port: 5001, Query: "til 3"})
//
// Conversion never panics on a malformed value. Unsupported or inconsistent
// input produces a diagnostic and an empty value, while connection and query
// failures are reported on the result.
package kdbml
