package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/safe-ro/safe-ro/internal/cache"
	"github.com/safe-ro/safe-ro/internal/log"
)

const (
	DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
	// ArchiveLagDays is how far behind today the archive is complete.
	ArchiveLagDays = 5
)

var ErrNoData = errors.New("no weather data")

type hourlyData struct {
	Time             []string  `json:"time"`
	RelativeHumidity []float64 `json:"relative_humidity_2m"`
}

type dailyData struct {
	Time          []string  `json:"time"`
	Temperature   []float64 `json:"temperature_2m_mean"`
	Precipitation []float64 `json:"precipitation_sum"`
}

type archiveResponse struct {
	Hourly hourlyData `json:"hourly"`
	Daily  dailyData  `json:"daily"`
}

// Day is the weather of one calendar day at a point.
type Day struct {
	Date          string  `json:"date"`
	Precipitation float64 `json:"precipitation_mm"`
	Temperature   float64 `json:"temperature_c"`
	Humidity      float64 `json:"humidity_percent"`
}

// Summary aggregates the days before a run. Rain gives context to a flood
// mask and dry, hot days to fire hotspots.
type Summary struct {
	Days               int     `json:"days"`
	TotalPrecipitation float64 `json:"total_precipitation_mm"`
	MaxPrecipitation   float64 `json:"max_daily_precipitation_mm"`
	MeanTemperature    float64 `json:"mean_temperature_c"`
	MeanHumidity       float64 `json:"mean_humidity_percent"`
}

type Option func(*Client)

func WithArchiveURL(u string) Option {
	return func(c *Client) { c.archiveURL = u }
}

func WithCache(cs cache.CacheService[[]Day]) Option {
	return func(c *Client) { c.cache = cs }
}

func WithRetries(retries int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = delay
	}
}

// Client reads daily history from the Open-Meteo archive.
type Client struct {
	archiveURL string
	http       *http.Client
	cache      cache.CacheService[[]Day]
	retries    int
	retryDelay time.Duration
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		archiveURL: DefaultArchiveURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		retries:    3,
		retryDelay: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func meanHumidity(hourly hourlyData) map[string]float64 {
	daily := make(map[string][]float64)
	for i, t := range hourly.Time {
		if i >= len(hourly.RelativeHumidity) || len(t) < 10 {
			continue
		}
		date := t[:10]
		daily[date] = append(daily[date], hourly.RelativeHumidity[i])
	}

	means := make(map[string]float64, len(daily))
	for date, values := range daily {
		means[date] = stat.Mean(values, nil)
	}
	return means
}

// Fetch returns one Day per date between start and end, both included.
func (c *Client) Fetch(ctx context.Context, point orb.Point, start, end time.Time) ([]Day, error) {
	var key string
	if c.cache != nil {
		key = c.cache.GenerateKey(point.Lat(), point.Lon(), start.Format(time.DateOnly), end.Format(time.DateOnly))
		if days, ok := c.cache.Get(key); ok {
			return days, nil
		}
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", point.Lat()))
	params.Set("longitude", fmt.Sprintf("%f", point.Lon()))
	params.Set("start_date", start.Format(time.DateOnly))
	params.Set("end_date", end.Format(time.DateOnly))
	params.Set("daily", "temperature_2m_mean,precipitation_sum")
	params.Set("hourly", "relative_humidity_2m")

	var data *archiveResponse
	var lastErr error
	for attempt := 0; attempt < max(c.retries, 1); attempt++ {
		if attempt > 0 {
			log.Warnf("failed to retrieve weather: %v. Retrying... (%d/%d)", lastErr, attempt, c.retries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		data, lastErr = c.get(ctx, c.archiveURL+"?"+params.Encode())
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to retrieve weather after %d attempts: %w", max(c.retries, 1), lastErr)
	}

	humidity := meanHumidity(data.Hourly)
	days := make([]Day, 0, len(data.Daily.Time))
	for i, date := range data.Daily.Time {
		if i >= len(data.Daily.Precipitation) || i >= len(data.Daily.Temperature) {
			break
		}
		days = append(days, Day{
			Date:          date,
			Precipitation: data.Daily.Precipitation[i],
			Temperature:   data.Daily.Temperature[i],
			Humidity:      humidity[date],
		})
	}

	if c.cache != nil && len(days) > 0 {
		if err := c.cache.Set(key, days); err != nil {
			log.Warnf("failed to cache weather: %v", err)
		}
	}
	return days, nil
}

func (c *Client) get(ctx context.Context, u string) (*archiveResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var data archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &data, nil
}

// Recent summarises the last days available in the archive over the centre
// of b.
func (c *Client) Recent(ctx context.Context, b orb.Bound, days int) (*Summary, error) {
	if days < 1 {
		return nil, fmt.Errorf("invalid number of days: %d", days)
	}
	end := time.Now().UTC().AddDate(0, 0, -ArchiveLagDays)
	start := end.AddDate(0, 0, -(days - 1))
	history, err := c.Fetch(ctx, b.Center(), start, end)
	if err != nil {
		return nil, err
	}
	return Summarize(history)
}

// Summarize aggregates days. Nulls in the archive decode as zero.
func Summarize(days []Day) (*Summary, error) {
	if len(days) == 0 {
		return nil, ErrNoData
	}
	precipitation := make([]float64, len(days))
	temperature := make([]float64, len(days))
	humidity := make([]float64, len(days))
	for i, d := range days {
		precipitation[i] = d.Precipitation
		temperature[i] = d.Temperature
		humidity[i] = d.Humidity
	}
	return &Summary{
		Days:               len(days),
		TotalPrecipitation: floats.Sum(precipitation),
		MaxPrecipitation:   floats.Max(precipitation),
		MeanTemperature:    stat.Mean(temperature, nil),
		MeanHumidity:       stat.Mean(humidity, nil),
	}, nil
}
