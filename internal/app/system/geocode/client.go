// Package geocode turns coordinates into short place names using a
// Nominatim-compatible reverse geocoder.
package geocode

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
)

// DefaultURL is the public OpenStreetMap Nominatim endpoint.
const DefaultURL = "https://nominatim.openstreetmap.org"

// Place is the result of a reverse lookup.
type Place struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Config configures the HTTP client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client calls the /reverse endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient builds a client, filling defaults for empty fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "testimonyhub"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() { c.httpClient.CloseIdleConnections() }

type reverseResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Reverse looks up the place at lat, lon.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("addressdetails", "1")
	params.Set("zoom", "16")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Place{}, fmt.Errorf("reverse geocode returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Place{}, fmt.Errorf("decode reverse geocode response: %w", err)
	}
	if out.Error != "" {
		return Place{}, fmt.Errorf("reverse geocode: %s", out.Error)
	}
	name := ConciseName(out.Address, out.DisplayName)
	if name == "" {
		return Place{}, fmt.Errorf("reverse geocode: no place at %.4f, %.4f", lat, lon)
	}
	return Place{Name: name, DisplayName: out.DisplayName}, nil
}

// ConciseName picks a short label from an address breakdown: "road, locality"
// when a road is known, else the locality, else the country, else the first
// three comma-separated parts of displayName.
func ConciseName(addr map[string]string, displayName string) string {
	locality := firstNonEmpty(addr["city"], addr["town"], addr["village"])
	if road := addr["road"]; road != "" {
		if locality != "" {
			return road + ", " + locality
		}
		return road
	}
	if locality != "" {
		return locality
	}
	if c := addr["country"]; c != "" {
		return c
	}
	if displayName == "" {
		return ""
	}
	parts := strings.Split(displayName, ",")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ",")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
