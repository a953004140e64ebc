// Package files reads files into dataframes and writes dataframes back to files.
//
// It is the generic fallback behind adapter.LoadFile: when a backend has no
// native path for a file, the file is opened through the Store registered for
// its location, decoded by type and loaded as a dataframe.
package files

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotExist is returned by Store.Open when the object does not exist.
var ErrNotExist = errors.New("file does not exist")

// ErrUnsupported is returned for operations a store cannot perform.
var ErrUnsupported = errors.New("operation not supported by store")

// Store is the byte-level access to one kind of file location.
type Store interface {
	// Open returns a reader over the object at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create returns a writer that replaces the object at path when closed.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the object at path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Glob expands a pattern into the matching paths, sorted.
	Glob(ctx context.Context, pattern string) ([]string, error)
}

// listPrefix returns the longest literal prefix of a pattern, used to narrow object listings.
func listPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// matchKeys filters object keys with a slash-separated glob pattern.
func matchKeys(pattern string, keys []string) ([]string, error) {
	var out []string
	for _, key := range keys {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, key)
		}
	}
	return out, nil
}

// splitBucketURL splits "scheme://bucket/key" into bucket and key.
func splitBucketURL(raw, scheme string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(raw, scheme+"://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, bucket != ""
}

// bufferedWriter collects written bytes and hands them to flush on Close.
type bufferedWriter struct {
	buf   strings.Builder
	flush func(data string) error
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *bufferedWriter) Close() error {
	return w.flush(w.buf.String())
}
