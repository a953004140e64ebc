package files

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureOptions configures access to Azure Blob Storage.
type AzureOptions struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
}

// AzureStore accesses wasb(s)://container@account.blob.core.windows.net/path blobs.
type AzureStore struct {
	opts AzureOptions

	mu      sync.Mutex
	clients map[string]*azblob.Client
}

// NewAzureStore creates a store; clients are created per storage account on first use.
func NewAzureStore(opts AzureOptions) *AzureStore {
	return &AzureStore{opts: opts, clients: make(map[string]*azblob.Client)}
}

type blobRef struct {
	scheme    string
	account   string
	host      string
	container string
	blob      string
}

func (r blobRef) String() string {
	return fmt.Sprintf("%s://%s@%s/%s", r.scheme, r.container, r.host, r.blob)
}

func parseBlobURL(p string) (blobRef, error) {
	u, err := url.Parse(p)
	if err != nil {
		return blobRef{}, fmt.Errorf("invalid Azure path %q: %w", p, err)
	}
	if u.User == nil || u.User.Username() == "" {
		return blobRef{}, fmt.Errorf("invalid Azure path %q: expected container@account host", p)
	}
	account, _, _ := strings.Cut(u.Host, ".")
	return blobRef{
		scheme:    u.Scheme,
		account:   account,
		host:      u.Host,
		container: u.User.Username(),
		blob:      strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func (s *AzureStore) client(ref blobRef) (*azblob.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[ref.account]; ok {
		return c, nil
	}

	var (
		c   *azblob.Client
		err error
	)
	switch {
	case s.opts.ConnectionString != "":
		c, err = azblob.NewClientFromConnectionString(s.opts.ConnectionString, nil)
	case s.opts.AccountKey != "":
		name := s.opts.AccountName
		if name == "" {
			name = ref.account
		}
		cred, credErr := azblob.NewSharedKeyCredential(name, s.opts.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		c, err = azblob.NewClientWithSharedKeyCredential("https://"+ref.host, cred, nil)
	default:
		c, err = azblob.NewClientWithNoCredential("https://"+ref.host, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}
	s.clients[ref.account] = c
	return c, nil
}

func (s *AzureStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	ref, err := parseBlobURL(p)
	if err != nil {
		return nil, err
	}
	c, err := s.client(ref)
	if err != nil {
		return nil, err
	}
	resp, err := c.DownloadStream(ctx, ref.container, ref.blob, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return resp.Body, nil
}

func (s *AzureStore) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	ref, err := parseBlobURL(p)
	if err != nil {
		return nil, err
	}
	c, err := s.client(ref)
	if err != nil {
		return nil, err
	}
	return &bufferedWriter{flush: func(data string) error {
		if _, err := c.UploadBuffer(ctx, ref.container, ref.blob, []byte(data), nil); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
		return nil
	}}, nil
}

func (s *AzureStore) Exists(ctx context.Context, p string) (bool, error) {
	ref, err := parseBlobURL(p)
	if err != nil {
		return false, err
	}
	c, err := s.client(ref)
	if err != nil {
		return false, err
	}
	blob := c.ServiceClient().NewContainerClient(ref.container).NewBlobClient(ref.blob)
	_, err = blob.GetProperties(ctx, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return true, nil
}

func (s *AzureStore) Glob(ctx context.Context, pattern string) ([]string, error) {
	ref, err := parseBlobURL(pattern)
	if err != nil {
		return nil, err
	}
	c, err := s.client(ref)
	if err != nil {
		return nil, err
	}

	prefix := listPrefix(ref.blob)
	var keys []string
	pager := c.NewListBlobsFlatPager(ref.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", ref.container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}

	matched, err := matchKeys(ref.blob, keys)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matched))
	for i, k := range matched {
		r := ref
		r.blob = k
		out[i] = r.String()
	}
	sort.Strings(out)
	return out, nil
}
