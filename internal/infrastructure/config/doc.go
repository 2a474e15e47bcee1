// Package config handles loading and validating kodibridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The shared auth token should be set via KODIBRIDGE_AUTH_TOKEN, not committed to the file
//   - The config file should have restricted permissions (0600) since it holds Kodi passwords
//
// The loaded *Config is built once at startup and passed by pointer into
// constructors. Nothing mutates it afterwards.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Listener.Port)
package config
