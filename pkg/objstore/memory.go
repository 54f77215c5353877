package objstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[civil.Date][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[civil.Date][]byte),
	}
}

func (s *MemoryStore) Put(ctx context.Context, date civil.Date, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[date] = b
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, date civil.Date) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[date]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no blob for %s", date)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *MemoryStore) List(ctx context.Context, from, to civil.Date) ([]civil.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dates []civil.Date
	for d := range s.blobs {
		if inRange(d, from, to) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (s *MemoryStore) Has(date civil.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[date]
	return ok
}

func (s *MemoryStore) Bytes(date civil.Date) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blobs[date]
}
