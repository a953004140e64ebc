// Package core defines the shared language of the dfbridge system.
//
// This package contains:
//   - Domain entities (Table, Metadata, File, MergeParams)
//   - The Arrow-backed Dataframe exchanged between files and warehouses
//   - The warehouse capability interface (Database)
//   - Configuration types (AdapterConfig, DialectConfig)
//   - Configuration errors shared by every backend
//
// The Golden Rule: pkg/core imports ONLY third-party leaf libraries and stdlib.
// All other packages depend on core, not the reverse.
package core
