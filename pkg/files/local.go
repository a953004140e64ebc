package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore accesses the local filesystem. Paths may carry a file:// prefix.
type LocalStore struct{}

func localPath(p string) string {
	return strings.TrimPrefix(p, "file://")
}

func (LocalStore) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := os.Open(localPath(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	return f, nil
}

func (LocalStore) Create(_ context.Context, p string) (io.WriteCloser, error) {
	name := localPath(p)
	if err := os.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", p, err)
	}
	return f, nil
}

func (LocalStore) Exists(_ context.Context, p string) (bool, error) {
	_, err := os.Stat(localPath(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (LocalStore) Glob(_ context.Context, pattern string) ([]string, error) {
	matches, err := filepath.Glob(localPath(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}
