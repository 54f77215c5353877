package objstore

import (
	"context"
	"io"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
)

// GCSStore keeps daily blobs as objects under a prefix in a GCS bucket.
// GCS object writes are atomic on Close, which satisfies the Put contract.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore uses ambient application credentials.
// TODO: allow auth with explicit credentials or a GKE service account.
func NewGCSStore(ctx context.Context, bucket string, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcs client")
	}

	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *GCSStore) objectName(date civil.Date) string {
	if s.prefix == "" {
		return blobName(date)
	}
	return s.prefix + "/" + blobName(date)
}

func (s *GCSStore) Put(ctx context.Context, date civil.Date, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(s.objectName(date)).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrap(err, "failed to copy blob to bucket")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to close gcs writer")
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, date civil.Date) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(date)).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, errors.Wrapf(ErrNotFound, "no blob for %s", date)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gcs reader")
	}
	return r, nil
}

func (s *GCSStore) List(ctx context.Context, from, to civil.Date) ([]civil.Date, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}

	var dates []civil.Date
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to list bucket")
		}

		name := attrs.Name
		if query.Prefix != "" {
			name = name[len(query.Prefix):]
		}
		d, ok := dateFromBlobName(name)
		if ok && inRange(d, from, to) {
			dates = append(dates, d)
		}
	}

	// Object listings are lexicographic, which for date-named blobs is
	// already chronological.
	return dates, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
