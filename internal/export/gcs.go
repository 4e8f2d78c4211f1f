package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

// GCS uploads reports to <bucket>/reports/<date>/<appointment-id>.md.
type GCS struct {
	bucket string
	open   func(ctx context.Context, object, contentType string) io.WriteCloser
	close  func() error
}

func NewGCS(ctx context.Context, bucket, credPath string) (*GCS, error) {
	var opts []option.ClientOption
	if credPath != "" {
		if _, err := os.Stat(credPath); err == nil {
			opts = append(opts, option.WithCredentialsFile(credPath))
		}
	}

	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCS{
		bucket: bucket,
		open: func(ctx context.Context, object, contentType string) io.WriteCloser {
			w := c.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
		close: c.Close,
	}, nil
}

func (g *GCS) Name() string { return "gcs" }

func (g *GCS) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}

func ObjectName(a storage.Appointment) string {
	return path.Join("reports", a.Date, a.ID+".md")
}

func (g *GCS) Upload(ctx context.Context, localPath string, a storage.Appointment) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	object := ObjectName(a)
	w := g.open(ctx, object, "text/markdown; charset=utf-8")
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload gs://%s/%s: %w", g.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, object, err)
	}
	return nil
}
