// Package ingest collects every registry city's trip records for one date and
// writes them as a single daily blob.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vllry/bus-traffic-archive/pkg/metrics"
	"github.com/vllry/bus-traffic-archive/pkg/objstore"
	"github.com/vllry/bus-traffic-archive/pkg/refdata"
	"github.com/vllry/bus-traffic-archive/pkg/registry"
	"github.com/vllry/bus-traffic-archive/pkg/types"
)

const DefaultWorkers = 8

// FetchClient is the slice of the reference data client the orchestrator
// needs.
type FetchClient interface {
	FetchCity(ctx context.Context, city registry.City, date civil.Date) ([]types.TripRecord, error)
}

// Result reports the per-city outcome of one ingestion call. Per-city
// failures are observability data, not errors: the call succeeds as long as
// the merged blob is written.
type Result struct {
	Date            civil.Date `json:"date"`
	CitiesSucceeded int        `json:"citiesSucceeded"`
	CitiesFailed    int        `json:"citiesFailed"`
	RecordsWritten  int        `json:"recordsWritten"`
}

type Orchestrator struct {
	client  FetchClient
	store   objstore.Store
	reg     *registry.Registry
	workers int
	log     *zap.SugaredLogger
	m       *metrics.Metrics
}

func NewOrchestrator(client FetchClient, store objstore.Store, reg *registry.Registry, workers int, log *zap.SugaredLogger, m *metrics.Metrics) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		client:  client,
		store:   store,
		reg:     reg,
		workers: workers,
		log:     log,
		m:       m,
	}
}

// Ingest fetches every registry city for the date with a bounded worker pool,
// merges the successful results in registry order, and writes them as one
// blob. A failed city is recorded and excluded; only a store write failure
// (or cancellation) fails the call. If every city fails, an empty blob is
// still written so downstream sees "ingested, found nothing" rather than
// "never ingested".
func (o *Orchestrator) Ingest(ctx context.Context, date civil.Date) (Result, error) {
	runID := uuid.NewString()
	cities := o.reg.Cities()
	log := o.log.With("run", runID, "date", date.String())
	log.Infow("starting ingestion", "cities", len(cities))

	// Results are buffered per registry index so the merge order never
	// depends on fetch completion order.
	perCity := make([][]types.TripRecord, len(cities))
	failed := make([]bool, len(cities))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.workers)

dispatch:
	for i := range cities {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(i int, city registry.City) {
			defer wg.Done()
			defer func() { <-sem }()

			records, err := o.client.FetchCity(ctx, city, date)
			switch {
			case errors.Is(err, refdata.ErrNotFound):
				// An empty day is a successful fetch.
				log.Infow("no data for city", "city", city.Name)
			case err != nil:
				failed[i] = true
				log.Warnw("city fetch failed", "city", city.Name, "error", err)
			default:
				perCity[i] = records
			}
		}(i, cities[i])
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		// Already-completed fetches are discarded; nothing was written.
		return Result{}, errors.Wrap(err, "ingestion cancelled")
	}

	result := Result{Date: date}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range cities {
		if failed[i] {
			result.CitiesFailed++
			continue
		}
		result.CitiesSucceeded++
		for _, rec := range perCity[i] {
			if err := enc.Encode(rec); err != nil {
				return Result{}, errors.Wrap(err, "couldn't encode record")
			}
			result.RecordsWritten++
		}
	}

	if err := o.store.Put(ctx, date, bytes.NewReader(buf.Bytes())); err != nil {
		return Result{}, errors.Wrapf(err, "couldn't write blob for %s", date)
	}

	o.m.CitiesSucceeded.Add(float64(result.CitiesSucceeded))
	o.m.CitiesFailed.Add(float64(result.CitiesFailed))
	o.m.RecordsIngested.Add(float64(result.RecordsWritten))
	o.m.BlobBytesWritten.Add(float64(buf.Len()))

	log.Infow("finished ingestion",
		"succeeded", result.CitiesSucceeded,
		"failed", result.CitiesFailed,
		"records", result.RecordsWritten,
		"bytes", buf.Len())

	return result, nil
}
