// Package input opens local or Google Cloud Storage files, transparently
// decompressing gzip and xz content based on the filename suffix.
package input

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/xi2/xz"
)

// Open opens path for streaming reads. Files ending in ".gz" are gunzipped and
// files ending in ".xz" are unxz'd; anything else is returned as-is. Paths of
// the form gs://bucket/object are read from Google Cloud Storage with default
// credentials. Each call returns a fresh stream positioned at the start.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	raw, err := openRaw(ctx, path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return &stackedReader{Reader: gz, closers: []io.Closer{gz, raw}}, nil

	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(raw, 0)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("open xz reader: %w", err)
		}
		return &stackedReader{Reader: xr, closers: []io.Closer{raw}}, nil
	}

	return raw, nil
}

// IsRemote reports whether path refers to a Google Cloud Storage object.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

func openRaw(ctx context.Context, path string) (io.ReadCloser, error) {
	if !IsRemote(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}

	bucket, object, err := splitGSPath(path)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &stackedReader{Reader: r, closers: []io.Closer{r, client}}, nil
}

// splitGSPath splits gs://bucket/path/to/object into its bucket and object.
func splitGSPath(path string) (bucket, object string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid google storage path %q: want gs://bucket/object", path)
	}
	return parts[0], parts[1], nil
}

// stackedReader reads from the outermost reader and closes every layer,
// innermost decoder first.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
