package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// Embedding configuration
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: embedding_model cannot be empty", ErrInvalidEmbeddingModel)
	}
	if c.EmbeddingDim < 1 || c.EmbeddingDim > MaxEmbeddingDim {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidEmbeddingDim, MaxEmbeddingDim, c.EmbeddingDim)
	}

	// Generation configuration
	if c.GenModel == "" {
		return fmt.Errorf("%w: gen_model cannot be empty", ErrInvalidGenModel)
	}
	if err := validateHTTPURL(c.OllamaURL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOllamaURL, err)
	}

	// Storage configuration
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDatabaseURL, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("%w: must start with postgres:// or postgresql://, got %q",
			ErrInvalidDatabaseURL, u.Scheme)
	}

	if c.PoolMinConns < 1 {
		return fmt.Errorf("%w: pool_min_conns must be at least 1, got %d",
			ErrInvalidPoolBounds, c.PoolMinConns)
	}
	if c.PoolMaxConns < c.PoolMinConns {
		return fmt.Errorf("%w: pool_max_conns (%d) must be >= pool_min_conns (%d)",
			ErrInvalidPoolBounds, c.PoolMaxConns, c.PoolMinConns)
	}

	if c.IVFFlatProbes < 1 || c.IVFFlatProbes > MaxProbes {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidProbes, MaxProbes, c.IVFFlatProbes)
	}

	return nil
}

// validateHTTPURL checks that s is an absolute http(s) URL with a host.
func validateHTTPURL(s string) error {
	u, err := url.Parse(strings.TrimSuffix(s, "/"))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}
