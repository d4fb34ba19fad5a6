package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

type Mission string

const (
	Sentinel2 Mission = "S2"
	Sentinel1 Mission = "S1"
)

func (m Mission) collection() string {
	if m == Sentinel1 {
		return "SENTINEL-1"
	}
	return "SENTINEL-2"
}

// DefaultStart is the earliest acquisition considered by FetchLatest.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type Query struct {
	Mission Mission
	Bound   orb.Bound
	Start   time.Time
	// MaxCloudCover filters Sentinel-2 products, 0 disables the filter.
	MaxCloudCover float64
	Top           int
}

// Polygon is the EWKT footprint used by OData.CSC.Intersects.
func Polygon(b orb.Bound) string {
	return "SRID=4326;" + wkt.MarshalString(b.ToPolygon())
}

// Filter builds the OData $filter expression.
func (q Query) Filter() string {
	start := q.Start
	if start.IsZero() {
		start = DefaultStart
	}

	clauses := []string{
		fmt.Sprintf("Collection/Name eq '%s'", q.Mission.collection()),
		fmt.Sprintf("OData.CSC.Intersects(area=geography'%s')", Polygon(q.Bound)),
		fmt.Sprintf("ContentDate/Start ge %s", start.UTC().Format("2006-01-02T15:04:05.000Z")),
	}
	switch q.Mission {
	case Sentinel2:
		if q.MaxCloudCover > 0 {
			clauses = append(clauses, fmt.Sprintf(
				"Attributes/OData.CSC.DoubleAttribute/any(att:att/Name eq 'cloudCover' and att/Value lt %.2f)", q.MaxCloudCover))
		}
	case Sentinel1:
		clauses = append(clauses,
			"Attributes/OData.CSC.StringAttribute/any(att:att/Name eq 'productType' and att/Value eq 'GRD')",
			"Attributes/OData.CSC.StringAttribute/any(att:att/Name eq 'sensorMode' and att/Value eq 'IW')")
	}
	return strings.Join(clauses, " and ")
}

type ContentDate struct {
	Start time.Time `json:"Start"`
	End   time.Time `json:"End"`
}

// Product is a catalogue entry.
type Product struct {
	ID            string      `json:"Id"`
	Name          string      `json:"Name"`
	ContentLength int64       `json:"ContentLength"`
	Online        bool        `json:"Online"`
	ContentDate   ContentDate `json:"ContentDate"`
}

type searchResponse struct {
	Value []Product `json:"value"`
}

// Search returns the newest products matching q.
func (c *Client) Search(ctx context.Context, q Query) ([]Product, error) {
	httpClient, err := c.client()
	if err != nil {
		return nil, err
	}

	top := q.Top
	if top <= 0 {
		top = 1
	}
	params := url.Values{}
	params.Set("$filter", q.Filter())
	params.Set("$orderby", "ContentDate/Start desc")
	params.Set("$top", strconv.Itoa(top))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CatalogURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalogue search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("catalogue search failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode catalogue response: %w", err)
	}
	return result.Value, nil
}
