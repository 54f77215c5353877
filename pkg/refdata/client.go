// Package refdata fetches per-city trip records from the external reference
// server.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vllry/bus-traffic-archive/pkg/registry"
	"github.com/vllry/bus-traffic-archive/pkg/types"
)

var (
	// ErrNotFound means the source has no data for the city/date. Callers
	// treat it as an empty result.
	ErrNotFound = errors.New("reference data not found")
	// ErrUnavailable means the source couldn't be reached or answered with a
	// server error.
	ErrUnavailable = errors.New("reference server unavailable")
	// ErrMalformed means the response didn't match the documented schema.
	ErrMalformed = errors.New("reference data malformed")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// cityStatsEntry is the wire schema of one trip entry from the reference
// server. Delay arrives either as an ISO-8601 duration string or as a plain
// number of minutes.
type cityStatsEntry struct {
	DepartureTime string          `json:"departure-time"`
	BusType       string          `json:"bus-type"`
	Passengers    *int            `json:"passengers"`
	Delay         json.RawMessage `json:"delay"`
	Accident      bool            `json:"accident"`
}

// FetchCities returns the reference server's city list, for bootstrapping a
// registry when none is configured.
func (c *Client) FetchCities(ctx context.Context) ([]registry.City, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cities", nil)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrUnavailable, "cities endpoint returned %d", res.StatusCode)
	}

	var cities []registry.City
	if err := json.NewDecoder(res.Body).Decode(&cities); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	return cities, nil
}

// FetchCity fetches one city's trip records for one date. The returned
// records all carry the requested date and the city's registry country.
// Entries inside an otherwise valid response that violate the schema are
// dropped; a response that isn't the documented list shape at all is
// ErrMalformed.
func (c *Client) FetchCity(ctx context.Context, city registry.City, date civil.Date) ([]types.TripRecord, error) {
	// The reference server takes a full datetime; midnight selects the day.
	statsURL := fmt.Sprintf("%s/cities/%d/stats?date=%s",
		c.baseURL, city.ID, url.QueryEscape(date.String()+"T00:00:00"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statsURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "no data for %s on %s", city.Name, date)
	case res.StatusCode != http.StatusOK:
		return nil, errors.Wrapf(ErrUnavailable, "stats endpoint returned %d", res.StatusCode)
	}

	var entries []cityStatsEntry
	if err := json.NewDecoder(res.Body).Decode(&entries); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	records := make([]types.TripRecord, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		rec, err := c.toRecord(e, city, date)
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	if dropped > 0 {
		c.log.Warnw("dropped invalid trip entries",
			"city", city.Name, "date", date.String(), "dropped", dropped)
	}

	return records, nil
}

func (c *Client) toRecord(e cityStatsEntry, city registry.City, date civil.Date) (types.TripRecord, error) {
	if e.Passengers == nil || *e.Passengers < 0 {
		return types.TripRecord{}, errors.New("missing or negative passenger count")
	}
	if e.BusType == "" {
		return types.TripRecord{}, errors.New("missing bus type")
	}

	delay, err := delayMinutes(e.Delay)
	if err != nil {
		return types.TripRecord{}, err
	}

	return types.TripRecord{
		City:           city.Name,
		Country:        city.Country,
		Date:           date,
		BusID:          e.BusType,
		PassengerCount: *e.Passengers,
		HadAccident:    e.Accident,
		DelayMinutes:   delay,
	}, nil
}

// delayMinutes normalizes the wire delay value to fractional minutes.
func delayMinutes(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("missing delay")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0, errors.New("negative delay")
		}
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("delay is neither a number nor a string")
	}
	return parseDurationMinutes(s)
}
