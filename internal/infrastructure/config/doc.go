// Package config handles loading and validating cloudpoll configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - ${VAR} secret expansion for credential fields
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (account passwords, API keys, JWT secrets) should be
//     set via environment variables or ${VAR} references
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(cfg.Integrations.Fireboard))
package config
