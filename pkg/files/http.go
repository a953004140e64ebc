package files

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPStore reads files over http(s). It cannot write, and URLs are never expanded as patterns.
type HTTPStore struct {
	Client *http.Client
}

func (s *HTTPStore) httpClient() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *HTTPStore) do(ctx context.Context, method, p string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", p, err)
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", p, err)
	}
	return resp, nil
}

func (s *HTTPStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, p)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	case resp.StatusCode >= 300:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", p, resp.Status)
	}
	return resp.Body, nil
}

func (s *HTTPStore) Create(context.Context, string) (io.WriteCloser, error) {
	return nil, fmt.Errorf("%w: http write", ErrUnsupported)
}

func (s *HTTPStore) Exists(ctx context.Context, p string) (bool, error) {
	resp, err := s.do(ctx, http.MethodHead, p)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 300, nil
}

// Glob returns the URL unchanged; query strings may contain glob metacharacters.
func (s *HTTPStore) Glob(_ context.Context, pattern string) ([]string, error) {
	return []string{pattern}, nil
}
