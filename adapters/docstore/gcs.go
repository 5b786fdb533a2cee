package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"trialtab/internal/errors"
)

// GCSSource reads study documents stored as gs://<bucket>/<prefix><id>.json
type GCSSource struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSource creates a bucket-backed source using application default credentials
func NewGCSSource(ctx context.Context, bucket, prefix string) (*GCSSource, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.ExternalServiceError("GCS", err)
	}
	return &GCSSource{client: client, bucket: bucket, prefix: prefix}, nil
}

// Fetch downloads one study object
func (s *GCSSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, errors.InvalidInput("empty study id")
	}
	reader, err := s.client.Bucket(s.bucket).Object(objectName(s.prefix, id)).NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return nil, errors.NotFound("study " + id)
	}
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, objectName(s.prefix, id), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, objectName(s.prefix, id), err)
	}
	return data, nil
}

// List returns the ids of every *.json object under the prefix
func (s *GCSSource) List(ctx context.Context) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var ids []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, s.prefix, err)
		}
		if id, ok := idFromObject(s.prefix, attrs.Name); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the underlying client
func (s *GCSSource) Close() error {
	return s.client.Close()
}

func objectName(prefix, id string) string {
	return prefix + id + ".json"
}

// idFromObject accepts only direct children of the prefix
func idFromObject(prefix, name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || !strings.HasSuffix(rest, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(rest, ".json")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
