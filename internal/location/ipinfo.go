package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// DefaultIPInfoBaseURL is the public ipinfo endpoint.
const DefaultIPInfoBaseURL = "https://ipinfo.io"

// Info is the subset of an ipinfo response the manager uses.
type Info struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
}

// Coordinates splits the "loc" field ("lat,lon") into floats.
func (i *Info) Coordinates() (lat, lon float64, err error) {
	parts := strings.SplitN(i.Loc, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed loc %q", i.Loc)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed loc %q: %w", i.Loc, err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed loc %q: %w", i.Loc, err)
	}
	return lat, lon, nil
}

// IPInfoClient queries an ipinfo-compatible geolocation API.
type IPInfoClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logger.Logger
}

// NewIPInfoClient builds a client. baseURL may be empty to use the public
// endpoint; token may be empty for unauthenticated (rate-limited) access.
func NewIPInfoClient(baseURL, token string, timeout time.Duration, log *logger.Logger) *IPInfoClient {
	if baseURL == "" {
		baseURL = DefaultIPInfoBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IPInfoClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Lookup geolocates a single IP address.
func (c *IPInfoClient) Lookup(ctx context.Context, ip string) (*Info, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(ip)
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geolocation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d for %s", resp.StatusCode, ip)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	c.log.Debug("geolocation lookup",
		logger.Field{Key: "ip", Value: ip},
		logger.Field{Key: "city", Value: info.City},
		logger.Field{Key: "country", Value: info.Country})

	return &info, nil
}
