// Package geocode turns a free-text address into a coordinate through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// DefaultURL is the public OpenStreetMap Nominatim instance.
const DefaultURL = "https://nominatim.openstreetmap.org"

// Options configures a Client.
type Options struct {
	URL       string
	UserAgent string
	// Rate is the maximum number of requests per second. Zero or less
	// disables limiting.
	Rate    int
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client looks addresses up. Results, including misses, are cached for the
// life of the client.
type Client struct {
	http    *resty.Client
	limiter ratelimit.Limiter
	cache   *cache.Cache
	log     *zap.Logger
}

type result struct {
	coord geo.Coordinate
	found bool
}

// New returns a Client.
func New(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limiter := ratelimit.NewUnlimited()
	if opts.Rate > 0 {
		limiter = ratelimit.New(opts.Rate)
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{
		http:    rc,
		limiter: limiter,
		cache:   cache.New(cache.NoExpiration, 0),
		log:     logging.OrNop(opts.Logger),
	}
}

// Lookup returns the first match for address. found is false when the
// service knows no such place.
func (c *Client) Lookup(ctx context.Context, address string) (coord geo.Coordinate, found bool, err error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))
	if key == "" {
		return geo.Coordinate{}, false, fmt.Errorf("empty address")
	}
	if v, ok := c.cache.Get(key); ok {
		r := v.(result)
		return r.coord, r.found, nil
	}

	c.limiter.Take()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"limit":  "1",
			"q":      address,
		}).
		Get("/search")
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("geocoding %q: %w", address, err)
	}
	if resp.IsError() {
		return geo.Coordinate{}, false, fmt.Errorf("geocoding %q: HTTP %d", address, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return geo.Coordinate{}, false, fmt.Errorf("geocoding %q: malformed response", address)
	}
	first := gjson.GetBytes(body, "0")
	var r result
	if first.Exists() {
		r.coord = geo.Coordinate{Lat: first.Get("lat").Float(), Lon: first.Get("lon").Float()}
		r.found = r.coord.Valid()
		c.log.Debug("geocoded",
			zap.String("address", address),
			zap.String("display_name", first.Get("display_name").String()),
			zap.Stringer("coordinate", r.coord))
	}
	if !r.found {
		r.coord = geo.Coordinate{}
	}
	c.cache.Set(key, r, cache.NoExpiration)
	return r.coord, r.found, nil
}
