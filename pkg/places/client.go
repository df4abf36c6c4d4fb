// Package places is a client for the Google Places API (New) nearby search.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	fieldMask      = "places.id,places.displayName,places.location,places.rating,places.userRatingCount,places.priceLevel,places.primaryType,places.businessStatus"

	// MaxResultCount is the largest page searchNearby returns.
	MaxResultCount = 20
)

// ErrMalformed is returned when a 200 response body cannot be decoded.
var ErrMalformed = eris.New("places: malformed response")

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("places: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client performs Google Places API operations.
type Client interface {
	SearchNearby(ctx context.Context, req NearbyRequest) (*NearbyResponse, error)
}

// NearbyRequest is the searchNearby request body.
type NearbyRequest struct {
	IncludedTypes       []string            `json:"includedTypes,omitempty"`
	MaxResultCount      int                 `json:"maxResultCount,omitempty"`
	RankPreference      string              `json:"rankPreference,omitempty"`
	LocationRestriction LocationRestriction `json:"locationRestriction"`
}

// LocationRestriction limits results to a circle.
type LocationRestriction struct {
	Circle Circle `json:"circle"`
}

// Circle is a center and radius in meters.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NearbyResponse is the searchNearby response.
type NearbyResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID              string      `json:"id"`
	DisplayName     DisplayName `json:"displayName"`
	Location        *LatLng     `json:"location,omitempty"`
	Rating          *float64    `json:"rating,omitempty"`
	UserRatingCount int         `json:"userRatingCount,omitempty"`
	PriceLevel      string      `json:"priceLevel,omitempty"`
	PrimaryType     string      `json:"primaryType,omitempty"`
	BusinessStatus  string      `json:"businessStatus,omitempty"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

var priceTiers = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// PriceTier maps a PRICE_LEVEL_* enum onto 0-4. Unspecified or unknown
// levels report false.
func PriceTier(level string) (int, bool) {
	t, ok := priceTiers[level]
	return t, ok
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchNearby(ctx context.Context, nr NearbyRequest) (*NearbyResponse, error) {
	if nr.MaxResultCount <= 0 || nr.MaxResultCount > MaxResultCount {
		nr.MaxResultCount = MaxResultCount
	}

	body, err := json.Marshal(nr)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		if len(respBody) > 512 {
			respBody = respBody[:512]
		}
		return nil, eris.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}, "places: search nearby")
	}

	var result NearbyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrapf(ErrMalformed, "places: unmarshal response: %v", err)
	}

	return &result, nil
}
