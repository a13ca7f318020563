package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/osm"
)

const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a client for the given interpreter endpoint. A nil httpClient
// gets a default one with a 60s timeout.
func New(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// Response is the json output format of the interpreter
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	Remark    string    `json:"remark,omitempty"`
	Elements  []Element `json:"elements"`
}

// Element is a node, way or relation as returned with "out geom".
// Nodes carry Lat/Lon, ways carry Geometry.
type Element struct {
	Type     osm.Type `json:"type"`
	ID       int64    `json:"id"`
	Lat      float64  `json:"lat,omitempty"`
	Lon      float64  `json:"lon,omitempty"`
	Geometry []LatLon `json:"geometry,omitempty"`
	Tags     osm.Tags `json:"tags,omitempty"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Interpret runs a query and decodes the element list.
func (c *Client) Interpret(ctx context.Context, query string) (*Response, error) {
	params := url.Values{}
	params.Set("data", query)

	reqURL := fmt.Sprintf("%s?%s", c.endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// Runtime errors come back as 200 with a remark and no elements
	if out.Remark != "" && len(out.Elements) == 0 {
		return nil, fmt.Errorf("overpass error: %s", out.Remark)
	}

	return &out, nil
}
