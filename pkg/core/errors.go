package core

import (
	"errors"
	"fmt"
)

// ErrConfig marks errors caused by configuration rather than by the warehouse.
var ErrConfig = errors.New("configuration error")

// NativePathError is returned when a file cannot be loaded through a backend's native path.
type NativePathError struct {
	Location FileLocation
	Backend  string
	FileType FileType
	Pattern  string
}

func (e *NativePathError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("no native load path for pattern %s into %s", e.Pattern, e.Backend)
	}
	if e.FileType != "" {
		return fmt.Sprintf("no native load path for %s files from %s into %s", e.FileType, e.Location, e.Backend)
	}
	return fmt.Sprintf("no native load path from %s into %s", e.Location, e.Backend)
}

func (e *NativePathError) Unwrap() error { return ErrConfig }

// MissingProjectError is returned when a BigQuery connection has no project id.
type MissingProjectError struct {
	ConnID string
}

func (e *MissingProjectError) Error() string {
	return fmt.Sprintf("conn_id %s has no project id", e.ConnID)
}

func (e *MissingProjectError) Unwrap() error { return ErrConfig }
