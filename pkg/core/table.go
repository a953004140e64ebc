package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxTableNameLength bounds generated table names so they fit every supported backend.
const MaxTableNameLength = 62

// tempTablePrefix starts every generated table name; it must begin with a letter.
const tempTablePrefix = "tmp_"

// Metadata contains additional, mostly optional, information needed to address a table.
// Unset fields are filled from the backend's default metadata at use time.
type Metadata struct {
	Schema    string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Database  string `json:"database,omitempty" yaml:"database,omitempty"`
	Warehouse string `json:"warehouse,omitempty" yaml:"warehouse,omitempty"`
}

// IsEmpty reports whether no metadata field is set.
func (m Metadata) IsEmpty() bool {
	return m.Schema == "" && m.Database == "" && m.Warehouse == ""
}

// WithDefaults returns m with every empty field taken from defaults.
func (m Metadata) WithDefaults(defaults Metadata) Metadata {
	if m.Schema == "" {
		m.Schema = defaults.Schema
	}
	if m.Database == "" {
		m.Database = defaults.Database
	}
	if m.Warehouse == "" {
		m.Warehouse = defaults.Warehouse
	}
	return m
}

// Table references a warehouse-resident relation.
// It is agnostic to the database type.
type Table struct {
	ConnID   string   `json:"conn_id" yaml:"conn_id"`
	Name     string   `json:"name" yaml:"name"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`

	// Temp is true when the name was generated rather than chosen by the caller.
	Temp bool `json:"temp,omitempty" yaml:"temp,omitempty"`
}

// NewTable creates a table reference. An empty name is replaced with a
// unique generated name and the table is marked temporary.
func NewTable(connID, name string, md Metadata) Table {
	t := Table{ConnID: connID, Name: name, Metadata: md}
	if t.Name == "" {
		t.Name = UniqueTableName(md.Schema)
		t.Temp = true
	}
	return t
}

// UniqueTableName generates a table name that is valid on every supported backend.
// The schema length is subtracted so that "schema.name" still fits MaxTableNameLength.
func UniqueTableName(schema string) string {
	limit := MaxTableNameLength - len(schema) - 1
	name := tempTablePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if limit > 0 && len(name) > limit {
		name = name[:limit]
	}
	return name
}

// String returns a human readable description of the table.
func (t Table) String() string {
	return fmt.Sprintf("Table(name=%s, conn_id=%s, schema=%s, database=%s, warehouse=%s)",
		t.Name, t.ConnID, t.Metadata.Schema, t.Metadata.Database, t.Metadata.Warehouse)
}
