// Package config loads dfbridge settings and named connections.
//
// Values are layered with koanf. From lowest to highest precedence:
// built-in defaults, the YAML config file, DFBRIDGE_ environment variables
// and explicitly set command-line flags.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Config is the fully loaded configuration.
type Config struct {
	core.Settings `koanf:",squash"`

	// Connections maps a conn id to its connection configuration.
	Connections map[string]core.ConnectionConfig `koanf:"connections"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

var _ adapter.Resolver = (*Config)(nil)

// ConnectionNotFoundError is returned when a conn id is not configured.
type ConnectionNotFoundError struct {
	ConnID    string
	Available []string
}

func (e *ConnectionNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("connection %q not found (no connections configured)", e.ConnID)
	}
	return fmt.Sprintf("connection %q not found (available: %s)", e.ConnID, strings.Join(e.Available, ", "))
}

// Unwrap makes the error match core.ErrConfig.
func (e *ConnectionNotFoundError) Unwrap() error { return core.ErrConfig }

// ConnIDs returns the configured connection ids in sorted order.
func (c *Config) ConnIDs() []string {
	ids := make([]string, 0, len(c.Connections))
	for id := range c.Connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Connection returns the connection configured under connID.
func (c *Config) Connection(connID string) (core.ConnectionConfig, error) {
	conn, ok := c.Connections[connID]
	if !ok {
		return core.ConnectionConfig{}, &ConnectionNotFoundError{ConnID: connID, Available: c.ConnIDs()}
	}
	return conn, nil
}

// Resolve implements adapter.Resolver.
func (c *Config) Resolve(connID string) (core.AdapterConfig, error) {
	conn, err := c.Connection(connID)
	if err != nil {
		return core.AdapterConfig{}, err
	}
	cfg := conn.AdapterConfig(c.Settings)
	cfg.ConnID = connID
	cfg.Type = strings.ToLower(cfg.Type)
	return cfg, nil
}

// Redacted returns a copy of the connections with passwords and secret params masked.
func (c *Config) Redacted() map[string]core.ConnectionConfig {
	out := make(map[string]core.ConnectionConfig, len(c.Connections))
	for id, conn := range c.Connections {
		if conn.Password != "" {
			conn.Password = redactedValue
		}
		if len(conn.Params) > 0 {
			params := make(map[string]any, len(conn.Params))
			for k, v := range conn.Params {
				if isSecretKey(k) {
					v = redactedValue
				}
				params[k] = v
			}
			conn.Params = params
		}
		out[id] = conn
	}
	return out
}

const redactedValue = "********"

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range []string{"password", "secret", "key", "token"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
