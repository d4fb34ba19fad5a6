package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safe-ro/safe-ro/internal/cache"
)

const archiveBody = `{
  "daily": {
    "time": ["2024-08-01", "2024-08-02"],
    "temperature_2m_mean": [20.0, 30.0],
    "precipitation_sum": [1.5, 10.5]
  },
  "hourly": {
    "time": ["2024-08-01T00:00", "2024-08-01T01:00", "2024-08-02T00:00"],
    "relative_humidity_2m": [60, 80, 50]
  }
}`

func newArchive(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "45.500000", r.URL.Query().Get("latitude"))
		assert.Equal(t, "25.000000", r.URL.Query().Get("longitude"))
		_, _ = w.Write([]byte(archiveBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

var point = orb.Point{25, 45.5}

func TestFetch(t *testing.T) {
	srv, _ := newArchive(t, 0)
	c := NewClient(WithArchiveURL(srv.URL))

	days, err := c.Fetch(context.Background(), point, time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, Day{Date: "2024-08-01", Precipitation: 1.5, Temperature: 20, Humidity: 70}, days[0])
	assert.Equal(t, 50.0, days[1].Humidity)
}

func TestFetchRetriesAndCaches(t *testing.T) {
	srv, calls := newArchive(t, 1)
	fc := cache.NewFileCache[[]Day](t.TempDir(), "weather")
	c := NewClient(WithArchiveURL(srv.URL), WithRetries(3, time.Millisecond), WithCache(fc))

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Fetch(context.Background(), point, start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	days, err := c.Fetch(context.Background(), point, start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, days, 2)
	assert.Equal(t, int32(2), calls.Load(), "second fetch is served from the cache")
}

func TestFetchGivesUp(t *testing.T) {
	srv, calls := newArchive(t, 10)
	c := NewClient(WithArchiveURL(srv.URL), WithRetries(2, time.Millisecond))

	_, err := c.Fetch(context.Background(), point, time.Now(), time.Now())
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestRecent(t *testing.T) {
	srv, _ := newArchive(t, 0)
	c := NewClient(WithArchiveURL(srv.URL))
	b := orb.Bound{Min: orb.Point{24.5, 45}, Max: orb.Point{25.5, 46}}

	s, err := c.Recent(context.Background(), b, 7)
	require.NoError(t, err)
	assert.Equal(t, &Summary{
		Days:               2,
		TotalPrecipitation: 12,
		MaxPrecipitation:   10.5,
		MeanTemperature:    25,
		MeanHumidity:       60,
	}, s)

	_, err = c.Recent(context.Background(), b, 0)
	assert.Error(t, err)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFetchDropsPartialResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"hourly":{"time":["2024-08-01T00:00"],"relative_humidity_2m":[99]},"daily":{"time":`))
			return
		}
		_, _ = w.Write([]byte(`{"daily":{"time":["2024-08-01"],"temperature_2m_mean":[18],"precipitation_sum":[3]}}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(WithArchiveURL(srv.URL), WithRetries(2, time.Millisecond))

	days, err := c.Fetch(context.Background(), point, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []Day{{Date: "2024-08-01", Precipitation: 3, Temperature: 18}}, days)
}
