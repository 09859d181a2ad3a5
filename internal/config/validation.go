package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate checks the configuration for correctness. It fails fast on the
// first invalid field; all returned errors wrap a package sentinel.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateProvider(); err != nil {
		return err
	}
	return c.validatePostgres()
}

func (c *Config) validateProvider() error {
	host := strings.TrimSpace(c.OllamaHost)
	if host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidOllamaHost)
	}
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOllamaHost, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidOllamaHost, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidOllamaHost, host)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model cannot be empty", ErrInvalidEmbedderModel)
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPostgresPassword)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not one of %s",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, strings.Join(validSSLModes, ", "))
	}
	return nil
}
