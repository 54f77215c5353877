// Package objstore stores one opaque blob per calendar date. Implementations
// share the same contract so callers are agnostic to whether blobs live on
// local disk or in a GCS bucket.
package objstore

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when no blob exists for the date. Callers
// distinguish it from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("blob not found")

// Store is the object store gateway. Put overwrites any existing blob for the
// date; the new content becomes visible atomically (no partial-write reads).
type Store interface {
	Put(ctx context.Context, date civil.Date, r io.Reader) error
	Get(ctx context.Context, date civil.Date) (io.ReadCloser, error)
	// List returns the dates in [from, to] that have a blob, ascending.
	List(ctx context.Context, from, to civil.Date) ([]civil.Date, error)
}

const blobSuffix = ".jsonl"

func blobName(date civil.Date) string {
	return date.String() + blobSuffix
}

// dateFromBlobName reverses blobName. Returns false for foreign objects.
func dateFromBlobName(name string) (civil.Date, bool) {
	if !strings.HasSuffix(name, blobSuffix) {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(strings.TrimSuffix(name, blobSuffix))
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

func inRange(d, from, to civil.Date) bool {
	return !d.Before(from) && !d.After(to)
}
