package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Point is a geocoded coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Client geocodes free-text address strings through a Nominatim-shaped
// endpoint. Public geocoders enforce strict per-client quotas, so requests
// are throttled locally before they leave the process.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 8 * time.Second
	rc.Logger = nil

	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Geocode resolves a free-text address to coordinates. found=false means
// the geocoder answered but knows no match; errors are transport-level and
// the caller surfaces them as recoverable.
func (c *Client) Geocode(ctx context.Context, query string) (Point, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Point{}, false, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Point{}, false, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	u := fmt.Sprintf("%s/search?%s", c.baseURL, q.Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, false, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", "editor-api/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Point{}, false, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return Point{}, false, err
	}
	if len(hits) == 0 {
		return Point{}, false, nil
	}
	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return Point{}, false, fmt.Errorf("geocode returned malformed coordinates")
	}
	return Point{Lat: lat, Lon: lon}, true, nil
}
