// Package maps resolves addresses and travel estimates against the Google
// Maps geocoding, distance-matrix and directions APIs.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/metrics"
)

const (
	DefaultGeocodeURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultDistanceURL   = "https://maps.googleapis.com/maps/api/distancematrix/json"
	DefaultDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"
)

// Client never returns errors to callers: every failure is logged and
// reported as "unavailable".
type Client struct {
	Key           string
	GeocodeURL    string
	DistanceURL   string
	DirectionsURL string
	Timeout       time.Duration
	Retry         RetryConfig
	HTTP          *http.Client
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p latLng) coords() domain.Coordinates { return domain.Coordinates{Lat: p.Lat, Lng: p.Lng} }

type geocodeResp struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type distanceResp struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string    `json:"status"`
			Distance textValue `json:"distance"`
			Duration textValue `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

type directionsResp struct {
	Status string `json:"status"`
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance textValue `json:"distance"`
			Duration textValue `json:"duration"`
			Steps    []struct {
				HTMLInstructions string    `json:"html_instructions"`
				Distance         textValue `json:"distance"`
				Duration         textValue `json:"duration"`
				StartLocation    latLng    `json:"start_location"`
				EndLocation      latLng    `json:"end_location"`
				Polyline         struct {
					Points string `json:"points"`
				} `json:"polyline"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinates, bool) {
	if strings.TrimSpace(address) == "" {
		return domain.Coordinates{}, false
	}
	q := url.Values{}
	q.Set("address", address)
	var out geocodeResp
	if !c.call(ctx, "geocode", or(c.GeocodeURL, DefaultGeocodeURL), q, &out) {
		return domain.Coordinates{}, false
	}
	if len(out.Results) == 0 {
		c.logger().WarnContext(ctx, "geocode returned no results", "status", out.Status)
		return domain.Coordinates{}, false
	}
	return out.Results[0].Geometry.Location.coords(), true
}

func (c *Client) DistanceAndDuration(ctx context.Context, origin, dest domain.Coordinates) (domain.RouteEstimate, bool) {
	q := url.Values{}
	q.Set("origins", point(origin))
	q.Set("destinations", point(dest))
	q.Set("units", "metric")
	var out distanceResp
	if !c.call(ctx, "distance", or(c.DistanceURL, DefaultDistanceURL), q, &out) {
		return domain.RouteEstimate{}, false
	}
	if len(out.Rows) == 0 || len(out.Rows[0].Elements) == 0 {
		c.logger().WarnContext(ctx, "distance matrix returned no elements", "status", out.Status)
		return domain.RouteEstimate{}, false
	}
	el := out.Rows[0].Elements[0]
	if el.Status != "OK" {
		c.logger().WarnContext(ctx, "distance matrix element not routable", "status", el.Status)
		return domain.RouteEstimate{}, false
	}
	return estimate(el.Distance, el.Duration), true
}

func (c *Client) Route(ctx context.Context, origin, dest domain.Coordinates) (domain.RoutePlan, bool) {
	q := url.Values{}
	q.Set("origin", point(origin))
	q.Set("destination", point(dest))
	var out directionsResp
	if !c.call(ctx, "directions", or(c.DirectionsURL, DefaultDirectionsURL), q, &out) {
		return domain.RoutePlan{}, false
	}
	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		c.logger().WarnContext(ctx, "directions returned no routes", "status", out.Status)
		return domain.RoutePlan{}, false
	}
	r := out.Routes[0]
	leg := r.Legs[0]
	plan := domain.RoutePlan{
		RouteEstimate: estimate(leg.Distance, leg.Duration),
		Polyline:      r.OverviewPolyline.Points,
	}
	for _, s := range leg.Steps {
		plan.Steps = append(plan.Steps, domain.RouteStep{
			Instruction: s.HTMLInstructions,
			DistanceM:   int(s.Distance.Value),
			DurationS:   int(s.Duration.Value),
			Start:       s.StartLocation.coords(),
			End:         s.EndLocation.coords(),
			Polyline:    s.Polyline.Points,
		})
	}
	return plan, true
}

// estimate converts provider meters and seconds to km and whole minutes.
func estimate(dist, dur textValue) domain.RouteEstimate {
	return domain.RouteEstimate{
		DistanceKm:   dist.Value / 1000,
		DurationMin:  int(dur.Value) / 60,
		DistanceText: dist.Text,
		DurationText: dur.Text,
	}
}

func (c *Client) call(ctx context.Context, op, endpoint string, q url.Values, out any) bool {
	start := time.Now()
	q.Set("key", c.Key)
	body, err := retry(ctx, c.Retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, endpoint+"?"+q.Encode())
	})
	if err == nil {
		err = json.Unmarshal(body, out)
	}
	c.Metrics.ObserveExternal("maps", op, start, err == nil)
	if err != nil {
		c.logger().WarnContext(ctx, "maps lookup failed", "op", op, "err", err)
		return false
	}
	return true
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	if len(body) == 0 {
		return nil, errors.New("maps: empty response")
	}
	return body, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func point(p domain.Coordinates) string {
	return fmt.Sprintf("%s,%s", strconv.FormatFloat(p.Lat, 'f', -1, 64), strconv.FormatFloat(p.Lng, 'f', -1, 64))
}

func or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
