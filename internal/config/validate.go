package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// fileConnectionTypes are connection types that only carry object-store credentials.
// They are used by file references and never open a warehouse adapter.
var fileConnectionTypes = map[string]bool{
	"local": true,
	"s3":    true,
	"aws":   true,
	"gcs":   true,
	"gs":    true,
	"wasb":  true,
	"wasbs": true,
	"azure": true,
}

// IsFileConnection reports whether the connection type names an object store.
func IsFileConnection(connType string) bool {
	return fileConnectionTypes[strings.ToLower(connType)]
}

// Validate checks settings and every connection.
func (c *Config) Validate() error {
	var errs []error

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunk_size must be positive, got %d", core.ErrConfig, c.ChunkSize))
	}
	switch c.Output {
	case OutputAuto, OutputTable, OutputCSV, OutputJSON, OutputMarkdown, "md":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown output format %q", core.ErrConfig, c.Output))
	}

	for _, id := range c.ConnIDs() {
		if err := ValidateConnection(c.Connections[id]); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateConnection checks that the connection type is known.
func ValidateConnection(conn core.ConnectionConfig) error {
	if conn.Type == "" {
		return fmt.Errorf("%w: connection type is required", core.ErrConfig)
	}
	if IsFileConnection(conn.Type) || adapter.IsRegistered(conn.Type) {
		return nil
	}
	return &adapter.UnknownAdapterError{
		Type:      conn.Type,
		Available: adapter.ListAdapters(),
	}
}
