package commands

import (
	"fmt"

	"github.com/leapstack-labs/dfbridge/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "connections",
		Short: "List configured connections",
		Long: `Print the configured connections as YAML with secrets redacted.

With --check, every warehouse connection is opened and the result reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			w := cmd.OutOrStdout()
			if s.cfg.File != "" {
				_, _ = fmt.Fprintf(w, "# config: %s\n", s.cfg.File)
			}
			if len(s.cfg.Connections) == 0 {
				_, _ = fmt.Fprintln(w, "# no connections configured")
				return nil
			}

			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"connections": s.cfg.Redacted()}); err != nil {
				return fmt.Errorf("failed to encode connections: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if !check {
				return nil
			}
			failed := 0
			for _, id := range s.cfg.ConnIDs() {
				if config.IsFileConnection(s.cfg.Connections[id].Type) {
					continue
				}
				if _, err := s.conns.Get(cmd.Context(), id); err != nil {
					failed++
					_, _ = fmt.Fprintf(w, "%s: FAILED (%v)\n", id, err)
					continue
				}
				_, _ = fmt.Fprintf(w, "%s: ok\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%d connection(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Open each warehouse connection")

	return cmd
}
