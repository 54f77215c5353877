package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vllry/bus-traffic-archive/pkg/registry"
)

var testCity = registry.City{ID: 7, Name: "Paris", Country: "France"}

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zap.NewNop().Sugar()), srv
}

func TestClient_FetchCity(t *testing.T) {
	date := civil.Date{Year: 2024, Month: time.March, Day: 1}

	tests := []struct {
		name      string
		status    int
		body      string
		expectErr error
		expectLen int
	}{
		{
			name:   "parses records",
			status: http.StatusOK,
			body: `[
				{"departure-time": "2024-03-01T08:00:00", "bus-type": "BUS-101", "passengers": 40, "delay": "PT5M", "accident": false},
				{"departure-time": "2024-03-01T09:00:00", "bus-type": "BUS-102", "passengers": 30, "delay": 10, "accident": true}
			]`,
			expectLen: 2,
		},
		{
			name:      "empty day",
			status:    http.StatusOK,
			body:      `[]`,
			expectLen: 0,
		},
		{
			name:      "not found",
			status:    http.StatusNotFound,
			body:      `{"detail": "no such city"}`,
			expectErr: ErrNotFound,
		},
		{
			name:      "server error is unavailable",
			status:    http.StatusInternalServerError,
			body:      `boom`,
			expectErr: ErrUnavailable,
		},
		{
			name:      "non-list body is malformed",
			status:    http.StatusOK,
			body:      `{"not": "a list"}`,
			expectErr: ErrMalformed,
		},
		{
			name:   "invalid entries are dropped",
			status: http.StatusOK,
			body: `[
				{"bus-type": "BUS-101", "passengers": 40, "delay": "PT5M", "accident": false},
				{"bus-type": "BUS-102", "passengers": -3, "delay": "PT5M", "accident": false},
				{"bus-type": "BUS-103", "delay": "PT5M", "accident": false},
				{"bus-type": "BUS-104", "passengers": 10, "delay": "soon", "accident": false},
				{"bus-type": "", "passengers": 10, "delay": "PT5M", "accident": false}
			]`,
			expectLen: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/cities/7/stats", r.URL.Path)
				assert.Contains(t, r.URL.Query().Get("date"), "2024-03-01T00:00:00")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			records, err := client.FetchCity(context.Background(), testCity, date)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}

			require.NoError(t, err)
			require.Len(t, records, tc.expectLen)
			for _, rec := range records {
				assert.Equal(t, "Paris", rec.City)
				assert.Equal(t, "France", rec.Country)
				assert.Equal(t, date, rec.Date)
			}
		})
	}
}

func TestClient_FetchCity_delayConversion(t *testing.T) {
	date := civil.Date{Year: 2024, Month: time.March, Day: 1}
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"bus-type": "BUS-101", "passengers": 1, "delay": "PT1H30M", "accident": false},
			{"bus-type": "BUS-102", "passengers": 1, "delay": 7.5, "accident": false}
		]`))
	})

	records, err := client.FetchCity(context.Background(), testCity, date)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.InDelta(t, 90.0, records[0].DelayMinutes, 1e-9)
	assert.InDelta(t, 7.5, records[1].DelayMinutes, 1e-9)
}

func TestClient_FetchCity_unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop().Sugar())
	_, err := client.FetchCity(context.Background(), testCity, civil.Date{Year: 2024, Month: time.March, Day: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_FetchCities(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cities", r.URL.Path)
		w.Write([]byte(`[
			{"id": 0, "name": "Paris", "country": "France"},
			{"id": 1, "name": "Berlin", "country": "Germany"}
		]`))
	})

	cities, err := client.FetchCities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, registry.City{ID: 0, Name: "Paris", Country: "France"}, cities[0])
	assert.Equal(t, registry.City{ID: 1, Name: "Berlin", Country: "Germany"}, cities[1])
}
