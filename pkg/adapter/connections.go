package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Resolver turns a connection identifier into adapter configuration.
type Resolver interface {
	Resolve(connID string) (core.AdapterConfig, error)
}

// Connections lazily opens one adapter per connection id.
// It is safe for concurrent use.
type Connections struct {
	resolver Resolver
	logger   *slog.Logger

	mu   sync.Mutex
	open map[string]Adapter
}

// NewConnections creates a connection cache backed by resolver.
// If logger is nil, a discard logger is used.
func NewConnections(resolver Resolver, logger *slog.Logger) *Connections {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Connections{
		resolver: resolver,
		logger:   logger,
		open:     make(map[string]Adapter),
	}
}

// Get returns the connected adapter for connID, connecting on first use.
func (c *Connections) Get(ctx context.Context, connID string) (Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.open[connID]; ok {
		return a, nil
	}

	cfg, err := c.resolver.Resolve(connID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve connection %q: %w", connID, err)
	}
	if cfg.ConnID == "" {
		cfg.ConnID = connID
	}

	a, err := NewAdapter(cfg, c.logger.With(slog.String("conn_id", connID)))
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect %q: %w", connID, err)
	}

	c.logger.Debug("opened connection", slog.String("conn_id", connID), slog.String("type", cfg.Type))
	c.open[connID] = a
	return a, nil
}

// Database returns the adapter for connID as a core.Database.
func (c *Connections) Database(ctx context.Context, connID string) (core.Database, error) {
	return c.Get(ctx, connID)
}

// Close closes every opened adapter.
func (c *Connections) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.open))
	for id := range c.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := c.open[id].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %q: %w", id, err))
		}
		delete(c.open, id)
	}
	return errors.Join(errs...)
}
