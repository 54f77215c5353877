package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// LocalStore keeps daily blobs as files in a single directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "couldn't create storage directory")
	}
	return &LocalStore{dir: dir}, nil
}

// Put writes to a temp file and renames it into place, so readers never
// observe a partially written blob.
func (s *LocalStore) Put(ctx context.Context, date civil.Date, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, blobName(date)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "couldn't create temp file")
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "couldn't write blob")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "couldn't close temp file")
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, blobName(date))); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "couldn't move blob into place")
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, date civil.Date) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, blobName(date)))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "no blob for %s", date)
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open blob")
	}
	return f, nil
}

func (s *LocalStore) List(ctx context.Context, from, to civil.Date) ([]civil.Date, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read storage directory")
	}

	var dates []civil.Date
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, ok := dateFromBlobName(e.Name())
		if ok && inRange(d, from, to) {
			dates = append(dates, d)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
