// Package directions is the HTTP adapter for the external routing service.
// It speaks a Directions-style API: origin, destination, ordered waypoints,
// and a status plus per-leg distance/duration in the response. The client
// owns its request timeout; the planning core enforces none.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/planner"
)

// Config holds routing service configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// LoadConfigFromEnv loads routing service configuration from environment variables
func LoadConfigFromEnv() *Config {
	timeout, _ := time.ParseDuration(getEnv("DIRECTIONS_TIMEOUT", "8s"))

	return &Config{
		BaseURL: getEnv("DIRECTIONS_BASE_URL", "https://maps.googleapis.com/maps/api/directions/json"),
		APIKey:  getEnv("DIRECTIONS_API_KEY", ""),
		Timeout: timeout,
	}
}

// Client implements planner.RoutingService over HTTP
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient creates a routing service client
func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route issues one directions request. optimizeWaypoints is forwarded but
// the planner always passes false: input order encodes the user's explicit
// sequencing.
func (c *Client) Route(ctx context.Context, origin, destination models.Station, waypoints []models.Station, optimizeWaypoints bool) (*planner.RouteResponse, error) {
	params := url.Values{}
	params.Set("origin", coord(origin))
	params.Set("destination", coord(destination))
	params.Set("mode", "driving")
	params.Set("key", c.config.APIKey)

	if len(waypoints) > 0 {
		points := make([]string, len(waypoints))
		for i, w := range waypoints {
			points[i] = coord(w)
		}
		value := strings.Join(points, "|")
		if optimizeWaypoints {
			value = "optimize:true|" + value
		}
		params.Set("waypoints", value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build directions request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions request: unexpected HTTP status %d", resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", err)
	}

	result := &planner.RouteResponse{Status: mapStatus(body.Status)}
	if result.Status != planner.StatusOK || len(body.Routes) == 0 {
		return result, nil
	}

	for _, leg := range body.Routes[0].Legs {
		result.Legs = append(result.Legs, planner.Leg{
			DistanceKm:      float64(leg.Distance.Value) / 1000,
			DurationMinutes: (leg.Duration.Value + 59) / 60,
		})
	}
	return result, nil
}

// mapStatus normalizes the wire status onto the recognized set. Anything
// unrecognized degrades to UNKNOWN_ERROR, which the planner treats like any
// other non-OK status.
func mapStatus(status string) planner.Status {
	switch planner.Status(status) {
	case planner.StatusOK, planner.StatusZeroResults, planner.StatusMaxWaypointsExceeded,
		planner.StatusOverQueryLimit, planner.StatusRequestDenied, planner.StatusInvalidRequest:
		return planner.Status(status)
	default:
		return planner.StatusUnknownError
	}
}

func coord(s models.Station) string {
	return strconv.FormatFloat(s.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(s.Lng, 'f', 6, 64)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
