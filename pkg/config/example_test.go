package config_test

import (
	"fmt"
	"log"
	"time"

	"github.com/dmarienko/kdbml/pkg/config"
)

// ExampleNewConfig demonstrates the defaults.
func ExampleNewConfig() {
	cfg := config.NewConfig()

	fmt.Printf("Address: %s\n", cfg.Connection.Address())
	fmt.Printf("Dial Timeout: %s\n", cfg.Connection.DialTimeout)
	fmt.Printf("Format: %s\n", cfg.Output.Format)

	// Output:
	// Address: localhost:5001
	// Dial Timeout: 10s
	// Format: json
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.NewConfig()
	cfg.Connection.Host = "tick.internal"
	cfg.Connection.QueryTimeout = 2 * time.Minute
	cfg.Output.Format = config.FormatArrow
	cfg.Output.Compression = "zstd"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")
	fmt.Println("Compressed:", cfg.Output.IsCompressionEnabled())

	// Output:
	// Configuration is valid!
	// Compressed: true
}

// ExampleConnectionConfig_Credentials shows the handshake credentials.
func ExampleConnectionConfig_Credentials() {
	cfg := config.NewConfig()
	fmt.Printf("%q\n", cfg.Connection.Credentials())

	cfg.Connection.User = "research"
	cfg.Connection.Password = "s3cret"
	fmt.Printf("%q\n", cfg.Connection.Credentials())

	// Output:
	// ""
	// "research:s3cret"
}
