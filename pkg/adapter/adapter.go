// Package adapter provides the warehouse adapter contract and the shared
// database/sql machinery used by dfbridge's backends.
//
// The capability interface itself (core.Database) lives in pkg/core.
// This package adds connection management, the native load dispatcher and
// the adapter registry. Concrete implementations are in pkg/adapters/.
package adapter

import (
	"context"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter is a warehouse backend that can be connected from configuration.
type Adapter interface {
	core.Database

	// Connect establishes a connection to the warehouse using the provided config.
	Connect(ctx context.Context, cfg Config) error
}
