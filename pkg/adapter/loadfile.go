package adapter

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// FileReader reads a file into a dataframe.
type FileReader interface {
	ReadDataframe(ctx context.Context, file core.File) (*core.Dataframe, error)
}

// LoadFileOptions controls LoadFile.
type LoadFileOptions struct {
	IfExists  core.LoadExistStrategy
	ChunkSize int

	// Native carries overrides for the backend's native path.
	Native core.NativeLoadOptions

	// DisableNative forces the dataframe path even when a native path exists.
	DisableNative bool
}

// LoadFile loads a file into a table, through the backend's native path when one
// supports the file and otherwise by reading the file into a dataframe.
func LoadFile(ctx context.Context, db core.Database, reader FileReader, file core.File, table core.Table, opts LoadFileOptions) error {
	ifExists := opts.IfExists
	if ifExists == "" {
		ifExists = core.LoadReplace
	}

	if !opts.DisableNative && db.CheckNativePath(file, table) {
		if err := db.LoadFileNatively(ctx, file, table, ifExists, opts.Native); err != nil {
			return fmt.Errorf("failed to load %s natively: %w", file.Path, err)
		}
		return nil
	}

	if reader == nil {
		return &core.NativePathError{Location: file.Location, Backend: db.SQLType(), FileType: file.Type}
	}
	df, err := reader.ReadDataframe(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	return db.LoadDataframe(ctx, df, table, core.LoadOptions{IfExists: ifExists, ChunkSize: opts.ChunkSize})
}
