package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSchemaExistsCommand creates the schema-exists command.
func NewSchemaExistsCommand() *cobra.Command {
	var connID string

	cmd := &cobra.Command{
		Use:   "schema-exists <schema>",
		Short: "Check whether a schema exists",
		Long:  `Print true when the schema (BigQuery dataset) exists on the connection and false otherwise.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			db, err := s.database(cmd, connID)
			if err != nil {
				return err
			}
			ok, err := db.SchemaExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}

	cmd.Flags().StringVar(&connID, "conn", "", "Warehouse connection id")
	_ = cmd.MarkFlagRequired("conn")

	return cmd
}
