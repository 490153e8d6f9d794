package mapbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.mapbox.com"
	forwardPath    = "/geocoding/v5/mapbox.places/{query}.json"
)

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type feature struct {
	PlaceName string   `json:"place_name"`
	Geometry  geometry `json:"geometry"`
}

type forwardResponse struct {
	Features []feature `json:"features"`
}

// Client is a Mapbox forward-geocoding client. Each call makes exactly one
// request; failures of any kind come back as domain.ErrGeocodingFailed.
type Client struct {
	http     *resty.Client
	token    string
	failures prometheus.Counter
	logger   *logger.Logger
}

type Option func(*Client)

// WithFailureCounter counts failed lookups.
func WithFailureCounter(c prometheus.Counter) Option {
	return func(cl *Client) { cl.failures = c }
}

func NewClient(baseURL, token string, timeout time.Duration, log *logger.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "wanderlust-listing-service/1.0"),
		token:  token,
		logger: log.Named("MapboxGeocoder"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForwardGeocode resolves query to the first matching point.
func (c *Client) ForwardGeocode(ctx context.Context, query string, limit int) (domain.GeoPoint, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.fail("empty query", nil)
	}
	if limit < 1 {
		limit = 1
	}

	var body forwardResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("query", query).
		SetQueryParam("access_token", c.token).
		SetQueryParam("limit", fmt.Sprint(limit)).
		SetResult(&body).
		Get(forwardPath)
	if err != nil {
		return c.fail("request failed", err, zap.String("query", query))
	}
	if resp.IsError() {
		return c.fail("unexpected status", nil, zap.String("query", query), zap.Int("status", resp.StatusCode()))
	}
	if len(body.Features) == 0 {
		return c.fail("no match", nil, zap.String("query", query))
	}

	g := body.Features[0].Geometry
	if len(g.Coordinates) != 2 {
		return c.fail("malformed geometry", nil, zap.String("query", query), zap.Int("coordinates", len(g.Coordinates)))
	}
	point := domain.NewPoint(g.Coordinates[0], g.Coordinates[1])
	if !point.Valid() {
		return c.fail("coordinates out of range", nil, zap.String("query", query), zap.Stringer("point", point))
	}

	c.logger.Debug("Geocoded location",
		zap.String("query", query),
		zap.String("place_name", body.Features[0].PlaceName),
		zap.Stringer("point", point))
	return point, nil
}

func (c *Client) fail(reason string, cause error, fields ...zap.Field) (domain.GeoPoint, error) {
	if c.failures != nil {
		c.failures.Inc()
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
		c.logger.Warn("Geocoding failed: "+reason, fields...)
		return domain.GeoPoint{}, fmt.Errorf("%w: %s: %v", domain.ErrGeocodingFailed, reason, cause)
	}
	c.logger.Warn("Geocoding failed: "+reason, fields...)
	return domain.GeoPoint{}, fmt.Errorf("%w: %s", domain.ErrGeocodingFailed, reason)
}
