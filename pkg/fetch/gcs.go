package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/tstromberg/camroll/pkg/camroll"
)

// GCS fetches gs://bucket/object sources using application default credentials.
type GCS struct {
	client *storage.Client
}

var _ camroll.Fetcher = (*GCS)(nil)

// NewGCS creates a Cloud Storage client. An empty credentialsFile uses
// application default credentials.
func NewGCS(ctx context.Context, credentialsFile string) (*GCS, error) {
	opts := []option.ClientOption{option.WithUserAgent("camroll")}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{client: c}, nil
}

// Close closes the client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Fetch implements camroll.Fetcher.
func (g *GCS) Fetch(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	bucket, object, err := splitObject(u)
	if err != nil {
		return 0, err
	}

	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return 0, fmt.Errorf("%s: no such object", u)
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", u, err)
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		return n, fmt.Errorf("read %s: %w", u, err)
	}
	return n, nil
}

func splitObject(u *url.URL) (string, string, error) {
	object := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", errors.New("want gs://bucket/object")
	}
	return u.Host, object, nil
}
