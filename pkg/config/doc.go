// Package config holds the kdbml configuration: the kdb+ connection, logging,
// observability and output sections.
//
// Configuration is read from YAML. Values may reference the environment with
// ${VAR} or ${VAR:-default}:
//
//	connection:
//	  host: ${KDB_HOST:-localhost}
//	  port: 5001
//	  user: ${KDB_USER}
//	  password: ${KDB_PASSWORD}
//	  query_timeout: 30s
//	  max_message_size: 67108864
//	output:
//	  format: arrow
//	  target: s3://research/trades.arrow
//	  compression: zstd
//
// LoadFile starts from NewConfig, so omitted keys keep their defaults, and
// validates the result.
package config
