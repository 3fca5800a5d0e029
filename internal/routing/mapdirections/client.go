package mapdirections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/courierloop/courierloop-backend/internal/routing"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/geo"
)

const (
	defaultBaseURL             = "https://api.mapbox.com"
	defaultProfile             = "driving-traffic"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("directions api key is required")

// Client adapts the hosted directions API to the routing.Provider port.
// The traffic-aware profile is always requested.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	profile    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured directions base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithProfile overrides the routing profile.
func WithProfile(profile string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(profile)
		if trimmed != "" {
			c.profile = trimmed
		}
	}
}

// NewClient builds the directions client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		profile:    defaultProfile,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.profile == "" {
		client.profile = defaultProfile
	}

	return client, nil
}

// ComputeRoute asks the directions API for a route through the given stops.
// The returned stop order follows the provider's optimized waypoint order.
func (c *Client) ComputeRoute(ctx context.Context, origin routing.Coordinate, stops []routing.Stop) (*routing.Route, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "directions client not configured")
	}
	if len(stops) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one stop is required")
	}

	requestURL := c.buildURL(origin, stops)

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create directions request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRouteComputation, err, "directions request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	var apiResp struct {
		Code   string `json:"code"`
		Routes []struct {
			Geometry string  `json:"geometry"`
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Legs     []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"legs"`
		} `json:"routes"`
		Waypoints []struct {
			WaypointIndex *int `json:"waypoint_index"`
		} `json:"waypoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRouteComputation, err, "decode directions response")
	}

	if apiResp.Code != "Ok" || len(apiResp.Routes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeRouteComputation, fmt.Sprintf("no route found (code %q)", apiResp.Code))
	}

	best := apiResp.Routes[0]

	legs := make([]float64, 0, len(best.Legs))
	for _, leg := range best.Legs {
		legs = append(legs, leg.Duration/60)
	}

	ordered := orderStops(stops, apiResp.Waypoints)

	return &routing.Route{
		Stops:             ordered,
		Geometry:          best.Geometry,
		TotalDistanceKm:   geo.Round2(best.Distance / 1000),
		TotalDurationMin:  best.Duration / 60,
		PerLegDurationMin: legs,
	}, nil
}

// orderStops re-sequences stops per the provider's waypoint indexes. The first
// waypoint is the origin, so stop i maps to waypoint i+1. A response without
// usable indexes keeps the submitted order.
func orderStops(stops []routing.Stop, waypoints []struct {
	WaypointIndex *int `json:"waypoint_index"`
}) []routing.Stop {
	if len(waypoints) != len(stops)+1 {
		return stops
	}

	ordered := make([]routing.Stop, len(stops))
	for i, stop := range stops {
		idx := waypoints[i+1].WaypointIndex
		if idx == nil || *idx < 1 || *idx > len(stops) {
			return stops
		}
		ordered[*idx-1] = stop
	}
	return ordered
}

func (c *Client) buildURL(origin routing.Coordinate, stops []routing.Stop) string {
	coords := make([]string, 0, len(stops)+1)
	coords = append(coords, fmt.Sprintf("%f,%f", origin.Lon, origin.Lat))
	for _, stop := range stops {
		coords = append(coords, fmt.Sprintf("%f,%f", stop.Coordinate.Lon, stop.Coordinate.Lat))
	}

	query := url.Values{}
	query.Set("access_token", c.apiKey)
	query.Set("geometries", "polyline")
	query.Set("overview", "full")
	query.Set("steps", "false")

	return fmt.Sprintf(
		"%s/directions/v5/mapbox/%s/%s?%s",
		strings.TrimRight(c.baseURL, "/"),
		url.PathEscape(c.profile),
		url.PathEscape(strings.Join(coords, ";")),
		query.Encode(),
	)
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		_ = resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429/5xx) once with
// backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 2
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
