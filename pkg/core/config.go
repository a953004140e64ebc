package core

// Default process-wide settings.
const (
	DefaultSchema    = "tmp_dfbridge"
	DefaultChunkSize = 1000000
)

// Settings holds the process-wide configuration shared by every operation.
// It is read-only after load.
type Settings struct {
	// Schema is the fallback schema for tables that do not name one.
	Schema string `koanf:"schema"`

	// ChunkSize is the number of rows written per batch during dataframe loads.
	ChunkSize int `koanf:"chunk_size"`

	// IdentifiersAsLower lower-cases exported column names before they reach user functions.
	IdentifiersAsLower bool `koanf:"identifiers_as_lower"`

	// Output is the default CLI rendering format (table, csv, json, markdown).
	Output string `koanf:"output"`

	Verbose bool `koanf:"verbose"`
}

// ConnectionConfig holds the configuration of one named connection (conn id).
type ConnectionConfig struct {
	Type string `koanf:"type" yaml:"type,omitempty"` // bigquery, postgres, duckdb, sqlite

	// File-based databases (DuckDB, SQLite)
	Path string `koanf:"path" yaml:"path,omitempty"`

	// Network databases
	Host     string `koanf:"host" yaml:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port,omitempty"`
	Database string `koanf:"database" yaml:"database,omitempty"` // database name, or BigQuery project id
	User     string `koanf:"user" yaml:"user,omitempty"`
	Password string `koanf:"password" yaml:"password,omitempty"`

	Schema string `koanf:"schema" yaml:"schema,omitempty"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options" yaml:"options,omitempty"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, BigQuery credentials)
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// AdapterConfig converts the connection into the adapter's connect configuration.
func (c ConnectionConfig) AdapterConfig(settings Settings) AdapterConfig {
	return AdapterConfig{
		Type:          c.Type,
		Path:          c.Path,
		Host:          c.Host,
		Port:          c.Port,
		Database:      c.Database,
		Username:      c.User,
		Password:      c.Password,
		Schema:        c.Schema,
		DefaultSchema: settings.Schema,
		Options:       c.Options,
		Params:        c.Params,
	}
}
