package core

import (
	"strconv"
	"strings"
)

// DialectConfig holds the static SQL configuration for a warehouse backend.
// This is pure data plus a few formatting helpers; statement synthesis lives
// in the adapters.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "bigquery", "postgres")
	Name string

	// Identifiers defines quoting rules
	Identifiers IdentifierConfig

	// DefaultSchema is the engine's own default namespace ("main" for DuckDB, "public" for Postgres).
	// It is only used when a schema must be named and none is configured.
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// IllegalColumnChars lists characters that may not appear in column identifiers.
	// Each is replaced with the entry at the same index in IllegalColumnCharsReplacement.
	IllegalColumnChars            []string
	IllegalColumnCharsReplacement []string

	// TypeNames maps dataframe column types to the backend's DDL type names.
	TypeNames map[ColumnType]string
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `
	QuoteEnd string // End quote character (usually same as Quote)
	Escape   string // Escape sequence: "", \`
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *DialectConfig) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier wraps name in the dialect's identifier quotes.
func (d *DialectConfig) QuoteIdentifier(name string) string {
	if d.Identifiers.Quote == "" {
		return name
	}
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// SanitizeColumnName applies the illegal-character substitution for column identifiers.
func (d *DialectConfig) SanitizeColumnName(name string) string {
	for i, ch := range d.IllegalColumnChars {
		replacement := ""
		if i < len(d.IllegalColumnCharsReplacement) {
			replacement = d.IllegalColumnCharsReplacement[i]
		}
		name = strings.ReplaceAll(name, ch, replacement)
	}
	return name
}

// TypeName returns the DDL type for a column type, falling back to the string type.
func (d *DialectConfig) TypeName(t ColumnType) string {
	if name, ok := d.TypeNames[t]; ok {
		return name
	}
	return d.TypeNames[ColumnString]
}
