package adapter

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// NativeLoader loads a file into a table using the backend's own ingestion path.
type NativeLoader func(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error

// NativePaths is the static native-load table a backend publishes at construction.
// Loaders are keyed by file location, Formats map file types to the backend's format names.
// Globs is set when the loaders expand path patterns themselves; otherwise
// patterns go through the generic read-then-load path.
type NativePaths struct {
	Backend string
	Loaders map[core.FileLocation]NativeLoader
	Formats map[core.FileType]string
	Globs   bool
	Logger  *slog.Logger
}

// Check reports whether the file's location has a loader and its type a format.
func (n NativePaths) Check(file core.File) bool {
	if file.IsPattern() && !n.Globs {
		return false
	}
	if _, ok := n.Loaders[file.Location]; !ok {
		return false
	}
	_, ok := n.Formats[file.Type]
	return ok
}

// Format returns the backend format name for the file type.
func (n NativePaths) Format(fileType core.FileType) (string, error) {
	format, ok := n.Formats[fileType]
	if !ok {
		return "", &core.NativePathError{Backend: n.Backend, FileType: fileType}
	}
	return format, nil
}

// Load dispatches to the loader registered for the file's location.
func (n NativePaths) Load(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	if file.IsPattern() && !n.Globs {
		return &core.NativePathError{Location: file.Location, Backend: n.Backend, Pattern: file.Path}
	}
	loader, ok := n.Loaders[file.Location]
	if !ok {
		return &core.NativePathError{Location: file.Location, Backend: n.Backend}
	}
	if _, ok := n.Formats[file.Type]; !ok {
		return &core.NativePathError{Location: file.Location, Backend: n.Backend, FileType: file.Type}
	}
	if n.Logger != nil {
		n.Logger.Debug("loading file natively",
			slog.String("backend", n.Backend),
			slog.String("path", file.Path),
			slog.String("location", string(file.Location)),
			slog.String("type", string(file.Type)))
	}
	return loader(ctx, file, table, ifExists, opts)
}
