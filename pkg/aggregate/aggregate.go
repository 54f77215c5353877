// Package aggregate computes per-country, per-day statistics by streaming
// daily blobs back out of the object store.
package aggregate

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vllry/bus-traffic-archive/pkg/metrics"
	"github.com/vllry/bus-traffic-archive/pkg/objstore"
	"github.com/vllry/bus-traffic-archive/pkg/types"
)

// ErrInvalidRange is returned when the from date is after the to date.
var ErrInvalidRange = errors.New("invalid date range")

// Record lines are small; this caps a single corrupt line, not a blob.
const maxRecordLineBytes = 1 << 20

type Engine struct {
	store objstore.Store
	log   *zap.SugaredLogger
	m     *metrics.Metrics
}

func NewEngine(store objstore.Store, log *zap.SugaredLogger, m *metrics.Metrics) *Engine {
	return &Engine{
		store: store,
		log:   log,
		m:     m,
	}
}

// accumulator is the running fold state for one (country, date) group. It is
// the only per-record state retained, which is what bounds aggregation memory
// to a single day's pass.
type accumulator struct {
	busCount        int
	totalPassengers int
	hadAccident     bool
	delaySum        float64
}

// ComputeRange aggregates each date in [from, to] ascending and returns rows
// ordered by (date, country). Dates without a blob contribute no rows; a
// store read failure other than not-found aborts the whole range, since it is
// indistinguishable from data loss.
//
// Dates are processed strictly sequentially: each date's accumulators must be
// released before the next date's blob is opened, keeping peak memory at one
// day's worth regardless of the range length.
func (e *Engine) ComputeRange(ctx context.Context, from, to civil.Date) ([]types.CountryDayStat, error) {
	if from.After(to) {
		return nil, errors.Wrapf(ErrInvalidRange, "%s > %s", from, to)
	}

	var out []types.CountryDayStat
	for d := from; !d.After(to); d = d.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "aggregation cancelled")
		}

		rows, err := e.computeDay(ctx, d)
		if errors.Is(err, objstore.ErrNotFound) {
			// Never ingested. No rows are fabricated for it.
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't aggregate %s", d)
		}

		out = append(out, rows...)
	}

	return out, nil
}

// computeDay folds one date's blob into per-country stats.
func (e *Engine) computeDay(ctx context.Context, date civil.Date) ([]types.CountryDayStat, error) {
	rc, err := e.store.Get(ctx, date)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	byCountry := make(map[string]*accumulator)
	skipped, err := e.fold(rc, date, byCountry)
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		e.log.Warnw("skipped malformed records", "date", date.String(), "skipped", skipped)
		e.m.RecordsSkipped.Add(float64(skipped))
	}
	e.m.DatesAggregated.Inc()

	return finalize(date, byCountry), nil
}

// fold decodes records one line at a time and accumulates them, so no more
// than one record is held beyond the running sums. Lines that don't decode as
// a valid record for the date are counted and skipped; blobs are large and
// externally sourced, so partial corruption must not abort the day.
func (e *Engine) fold(r io.Reader, date civil.Date, byCountry map[string]*accumulator) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordLineBytes)

	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec types.TripRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		if !validRecord(rec, date) {
			skipped++
			continue
		}

		acc, ok := byCountry[rec.Country]
		if !ok {
			acc = &accumulator{}
			byCountry[rec.Country] = acc
		}
		acc.busCount++
		acc.totalPassengers += rec.PassengerCount
		acc.hadAccident = acc.hadAccident || rec.HadAccident
		acc.delaySum += rec.DelayMinutes
	}

	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, "couldn't read blob")
	}
	return skipped, nil
}

// validRecord enforces the blob invariants on externally sourced data.
func validRecord(rec types.TripRecord, date civil.Date) bool {
	return rec.Country != "" &&
		rec.Date == date &&
		rec.PassengerCount >= 0 &&
		rec.DelayMinutes >= 0
}

// finalize turns the day's accumulators into rows ordered by country.
func finalize(date civil.Date, byCountry map[string]*accumulator) []types.CountryDayStat {
	countries := make([]string, 0, len(byCountry))
	for country := range byCountry {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	rows := make([]types.CountryDayStat, 0, len(countries))
	for _, country := range countries {
		rows = append(rows, byCountry[country].stat(country, date))
	}
	return rows
}

func (a *accumulator) stat(country string, date civil.Date) types.CountryDayStat {
	s := types.CountryDayStat{
		Country:         country,
		Date:            date,
		BusCount:        a.busCount,
		TotalPassengers: a.totalPassengers,
		HadAccident:     a.hadAccident,
	}
	if a.busCount == 0 {
		s.NoData = true
		return s
	}
	s.AverageDelayMinutes = a.delaySum / float64(a.busCount)
	return s
}
