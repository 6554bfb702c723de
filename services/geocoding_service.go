package services

import (
	"os"
	"strconv"
	"time"

	"address-verify-server/utils"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultGeocodingBaseURL = "https://nominatim.openstreetmap.org"

// GeocodeResult is the best-effort outcome of forward geocoding a declared
// address. Lat/Lng are nil when the provider failed or returned no match;
// Failure carries the annotation in that case.
type GeocodeResult struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	DisplayName string   `json:"displayName"`
	Failure     string   `json:"failure,omitempty"`
}

// Found reports whether the provider produced usable coordinates.
func (r GeocodeResult) Found() bool { return r.Lat != nil && r.Lng != nil }

type Geocoder struct {
	client *resty.Client
	logger *zap.Logger
}

func NewGeocoder() *Geocoder {
	baseURL := os.Getenv("GEOCODING_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGeocodingBaseURL
	}
	return NewGeocoderWithBaseURL(baseURL)
}

func NewGeocoderWithBaseURL(baseURL string) *Geocoder {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "address-verify-server/1.0")

	return &Geocoder{
		client: client,
		logger: utils.Logger,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a free-text address to coordinates. Provider failures are
// absorbed: the caller always gets a result, with nil coordinates and a
// failure annotation when the lookup did not succeed.
func (g *Geocoder) Geocode(address string) GeocodeResult {
	if address == "" {
		return GeocodeResult{Failure: "empty address"}
	}

	var matches []nominatimResult
	resp, err := g.client.R().
		SetQueryParams(map[string]string{
			"q":      address,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&matches).
		Get("/search")

	if err != nil {
		g.logger.Warn("geocoding request failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return GeocodeResult{Failure: "geocoding provider unreachable: " + err.Error()}
	}
	if resp.StatusCode() != 200 {
		g.logger.Warn("geocoding provider returned non-200",
			zap.String("address", address),
			zap.Int("status_code", resp.StatusCode()),
		)
		return GeocodeResult{Failure: "geocoding provider error: status " + strconv.Itoa(resp.StatusCode())}
	}
	if len(matches) == 0 {
		return GeocodeResult{Failure: "no geocoding match for address"}
	}

	lat, latErr := strconv.ParseFloat(matches[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(matches[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		g.logger.Warn("geocoding provider returned unparseable coordinates",
			zap.String("address", address),
			zap.String("lat", matches[0].Lat),
			zap.String("lon", matches[0].Lon),
		)
		return GeocodeResult{Failure: "geocoding provider returned unparseable coordinates"}
	}

	return GeocodeResult{Lat: &lat, Lng: &lng, DisplayName: matches[0].DisplayName}
}
