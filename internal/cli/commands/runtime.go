// Package commands implements the dfbridge subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dfbridge/internal/config"
	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/leapstack-labs/dfbridge/pkg/files"
	"github.com/spf13/cobra"
)

// session holds what a command needs from the loaded configuration.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	conns  *adapter.Connections
}

func newSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := config.GetLogger(ctx)
	return &session{
		cfg:    cfg,
		logger: logger,
		conns:  adapter.NewConnections(cfg, logger),
	}, nil
}

func (s *session) Close() error {
	return s.conns.Close()
}

// database opens the warehouse connection connID.
func (s *session) database(cmd *cobra.Command, connID string) (core.Database, error) {
	if connID == "" {
		return nil, fmt.Errorf("--conn is required")
	}
	conn, err := s.cfg.Connection(connID)
	if err != nil {
		return nil, err
	}
	if config.IsFileConnection(conn.Type) {
		return nil, fmt.Errorf("%w: connection %q of type %q is not a warehouse", core.ErrConfig, connID, conn.Type)
	}
	return s.conns.Database(cmd.Context(), connID)
}

// fileSystem builds a file system whose object stores use the credentials of fileConnID.
func (s *session) fileSystem(fileConnID string, decode files.DecodeOptions) (*files.FileSystem, error) {
	var opts files.Options
	if fileConnID != "" {
		cfg, err := s.cfg.Resolve(fileConnID)
		if err != nil {
			return nil, err
		}
		opts, err = files.OptionsFromConnection(cfg)
		if err != nil {
			return nil, err
		}
	}
	opts.Decode = decode
	return files.New(s.logger, opts), nil
}

// parseTableRef parses "table", "schema.table" or "database.schema.table".
func parseTableRef(connID, ref string) (core.Table, error) {
	parts := strings.Split(ref, ".")
	for _, p := range parts {
		if p == "" {
			return core.Table{}, fmt.Errorf("invalid table reference %q", ref)
		}
	}
	var md core.Metadata
	switch len(parts) {
	case 1:
	case 2:
		md.Schema = parts[0]
	case 3:
		md.Database, md.Schema = parts[0], parts[1]
	default:
		return core.Table{}, fmt.Errorf("invalid table reference %q: expected [database.][schema.]table", ref)
	}
	return core.NewTable(connID, parts[len(parts)-1], md), nil
}
