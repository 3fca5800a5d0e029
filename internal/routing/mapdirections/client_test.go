package mapdirections

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/courierloop/courierloop-backend/internal/routing"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("test-key",
		WithBaseURL("http://directions.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestComputeRouteParsesProviderResponse(t *testing.T) {
	respBody := `{
		"code": "Ok",
		"routes": [{
			"geometry": "abc123",
			"distance": 12500,
			"duration": 1800,
			"legs": [
				{"distance": 5000, "duration": 600},
				{"distance": 7500, "duration": 1200}
			]
		}],
		"waypoints": [
			{"waypoint_index": 0},
			{"waypoint_index": 2},
			{"waypoint_index": 1}
		]
	}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := newTestClient(t, rt)
	origin := routing.Coordinate{Lat: 12.97, Lon: 77.59}
	stops := []routing.Stop{
		{OrderID: "o1", Coordinate: routing.Coordinate{Lat: 12.98, Lon: 77.60}},
		{OrderID: "o2", Coordinate: routing.Coordinate{Lat: 12.99, Lon: 77.61}},
	}

	route, err := client.ComputeRoute(context.Background(), origin, stops)
	if err != nil {
		t.Fatalf("compute route: %v", err)
	}

	if !strings.Contains(capturedURL, "/directions/v5/mapbox/driving-traffic/") {
		t.Fatalf("expected traffic-aware profile in URL, got %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "access_token=test-key") {
		t.Fatalf("expected api key in URL, got %q", capturedURL)
	}

	if route.Geometry != "abc123" {
		t.Fatalf("unexpected geometry %q", route.Geometry)
	}
	if route.TotalDistanceKm != 12.5 {
		t.Fatalf("expected 12.5 km, got %f", route.TotalDistanceKm)
	}
	if route.TotalDurationMin != 30 {
		t.Fatalf("expected 30 min, got %f", route.TotalDurationMin)
	}
	if len(route.PerLegDurationMin) != 2 || route.PerLegDurationMin[0] != 10 || route.PerLegDurationMin[1] != 20 {
		t.Fatalf("unexpected legs %v", route.PerLegDurationMin)
	}

	// waypoint_index 2 for the first submitted stop puts o1 second.
	if route.Stops[0].OrderID != "o2" || route.Stops[1].OrderID != "o1" {
		t.Fatalf("expected provider order [o2 o1], got [%s %s]", route.Stops[0].OrderID, route.Stops[1].OrderID)
	}
}

func TestComputeRouteRetriesTransientFailures(t *testing.T) {
	attempts := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return jsonResponse(http.StatusBadGateway, `upstream error`), nil
		}
		return jsonResponse(http.StatusOK, `{
			"code": "Ok",
			"routes": [{"geometry": "g", "distance": 1000, "duration": 120, "legs": [{"distance": 1000, "duration": 120}]}],
			"waypoints": [{"waypoint_index": 0}, {"waypoint_index": 1}]
		}`), nil
	})

	client := newTestClient(t, rt)
	route, err := client.ComputeRoute(context.Background(), routing.Coordinate{}, []routing.Stop{{OrderID: "o1"}})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if route.TotalDurationMin != 2 {
		t.Fatalf("expected 2 min, got %f", route.TotalDurationMin)
	}
}

func TestComputeRouteSurfacesComputationFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"code": "NoRoute", "routes": []}`), nil
	})

	client := newTestClient(t, rt)
	_, err := client.ComputeRoute(context.Background(), routing.Coordinate{}, []routing.Stop{{OrderID: "o1"}})
	if err == nil {
		t.Fatal("expected no-route error")
	}
	if !pkgerrors.Is(err, pkgerrors.CodeRouteComputation) {
		t.Fatalf("expected route computation code, got %v", err)
	}
}

func TestComputeRouteDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusUnauthorized, `bad key`), nil
	})

	client := newTestClient(t, rt)
	_, err := client.ComputeRoute(context.Background(), routing.Coordinate{}, []routing.Stop{{OrderID: "o1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt for 401, got %d", attempts)
	}
}

func TestComputeRouteRequiresStops(t *testing.T) {
	client := newTestClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	}))

	if _, err := client.ComputeRoute(context.Background(), routing.Coordinate{}, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected api key error")
	}
}
