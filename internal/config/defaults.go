package config

import "github.com/leapstack-labs/dfbridge/pkg/core"

// Config file names, searched in order.
const (
	ConfigFileName    = "dfbridge.yaml"
	AltConfigFileName = "dfbridge.yml"
)

// EnvPrefix is the prefix of environment variables read into the configuration.
// DFBRIDGE_CHUNK_SIZE sets chunk_size; a double underscore separates nested keys,
// so DFBRIDGE_CONNECTIONS__WH__PASSWORD sets connections.wh.password.
const EnvPrefix = "DFBRIDGE_"

// Output formats.
const (
	OutputAuto     = "auto"
	OutputTable    = "table"
	OutputCSV      = "csv"
	OutputJSON     = "json"
	OutputMarkdown = "markdown"
)

// DefaultPostgresPort is applied to postgres connections that leave port unset.
const DefaultPostgresPort = 5432

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// defaults returns the lowest-precedence configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"schema":               core.DefaultSchema,
		"chunk_size":           core.DefaultChunkSize,
		"identifiers_as_lower": true,
		"output":               OutputAuto,
		"verbose":              false,
	}
}
