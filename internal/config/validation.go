package config

import (
	"fmt"
	"net"
	"strings"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate performs fail-fast validation of the configuration.
// Returns sentinel errors wrapped with context for errors.Is() checks.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if strings.ContainsAny(c.ModelName, " \t\n") {
		return fmt.Errorf("%w: model name must not contain whitespace: %q", ErrInvalidModelName, c.ModelName)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be in range 1-65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q (valid: disable, allow, prefer, require, verify-ca, verify-full)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// ValidateServe performs additional validation required for serve mode.
// The HMAC secret protects session cookies and CSRF tokens, so serving
// without one is refused outright.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.HMACSecret == "" {
		return fmt.Errorf("%w: set the HMAC_SECRET environment variable", ErrMissingHMACSecret)
	}
	if len(c.HMACSecret) < 32 {
		return fmt.Errorf("%w: must be at least 32 bytes, got %d", ErrInvalidHMACSecret, len(c.HMACSecret))
	}

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}

	return nil
}
