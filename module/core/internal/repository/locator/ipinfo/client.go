package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/locator"
)

var _ locator.LocationProvider = (*Client)(nil)

const (
	DefaultBaseURL = "https://ipinfo.io"
	sourceName     = "ipinfo"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type response struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
	Bogon   bool   `json:"bogon"`
}

func (c *Client) Locate(ctx context.Context, ip string) (*domain.UserLocation, error) {
	endpoint := c.baseURL + "/json"
	if ip != "" {
		endpoint = c.baseURL + "/" + url.PathEscape(ip) + "/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ipinfo status %s", domain.ErrLocationUnavailable, resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode ipinfo response: %v", domain.ErrLocationUnavailable, err)
	}
	if body.Bogon {
		return nil, fmt.Errorf("%w: %s is not a public address", domain.ErrLocationUnavailable, body.IP)
	}

	point, err := ParseLoc(body.Loc)
	if err != nil {
		return nil, err
	}

	return &domain.UserLocation{
		Point:   point,
		IP:      body.IP,
		City:    body.City,
		Region:  body.Region,
		Country: body.Country,
		Source:  sourceName,
	}, nil
}

// ParseLoc parses ipinfo's "lat,lon" field.
func ParseLoc(loc string) (domain.GeoPoint, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("%w: loc %q", domain.ErrLocationUnavailable, loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: loc %q", domain.ErrLocationUnavailable, loc)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: loc %q", domain.ErrLocationUnavailable, loc)
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if err := domain.ValidatePoint(p); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}
	return p, nil
}
