package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore accesses gs://bucket/key objects in Google Cloud Storage.
// The client is created on first use.
type GCSStore struct {
	opts []option.ClientOption

	once   sync.Once
	client *storage.Client
	err    error
}

// NewGCSStore creates a store; an empty credentials file uses application default credentials.
func NewGCSStore(credentialsFile string) *GCSStore {
	s := &GCSStore{}
	if credentialsFile != "" {
		s.opts = append(s.opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	return s
}

func (s *GCSStore) storageClient(ctx context.Context) (*storage.Client, error) {
	s.once.Do(func() {
		s.client, s.err = storage.NewClient(ctx, s.opts...)
		if s.err != nil {
			s.err = fmt.Errorf("failed to create GCS client: %w", s.err)
		}
	})
	return s.client, s.err
}

func (s *GCSStore) object(ctx context.Context, p string) (*storage.ObjectHandle, error) {
	bucket, key, ok := splitBucketURL(p, "gs")
	if !ok {
		return nil, fmt.Errorf("invalid GCS path %q", p)
	}
	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Bucket(bucket).Object(key), nil
}

func (s *GCSStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	obj, err := s.object(ctx, p)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return r, nil
}

func (s *GCSStore) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	obj, err := s.object(ctx, p)
	if err != nil {
		return nil, err
	}
	return obj.NewWriter(ctx), nil
}

func (s *GCSStore) Exists(ctx context.Context, p string) (bool, error) {
	obj, err := s.object(ctx, p)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return true, nil
}

func (s *GCSStore) Glob(ctx context.Context, pattern string) ([]string, error) {
	bucket, keyPattern, ok := splitBucketURL(pattern, "gs")
	if !ok {
		return nil, fmt.Errorf("invalid GCS path %q", pattern)
	}
	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: listPrefix(keyPattern)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s: %w", bucket, err)
		}
		keys = append(keys, attrs.Name)
	}

	matched, err := matchKeys(keyPattern, keys)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matched))
	for i, k := range matched {
		out[i] = "gs://" + bucket + "/" + k
	}
	sort.Strings(out)
	return out, nil
}

// Close releases the client if one was created.
func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
