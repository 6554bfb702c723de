package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocoderParsesProviderResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"lat":"6.5244","lon":"3.3792","display_name":"Adeola Odeku Street, Lagos"}]`)
	}))
	defer server.Close()

	result := NewGeocoderWithBaseURL(server.URL).Geocode("12 Adeola Odeku Street, Lagos")
	require.True(t, result.Found())
	assert.Equal(t, 6.5244, *result.Lat)
	assert.Equal(t, 3.3792, *result.Lng)
	assert.Equal(t, "Adeola Odeku Street, Lagos", result.DisplayName)
	assert.Empty(t, result.Failure)
}

func TestGeocoderNoMatchIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	result := NewGeocoderWithBaseURL(server.URL).Geocode("nowhere in particular")
	assert.False(t, result.Found())
	assert.Contains(t, result.Failure, "no geocoding match")
}

func TestGeocoderProviderErrorIsAbsorbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := NewGeocoderWithBaseURL(server.URL).Geocode("12 Adeola Odeku Street")
	assert.False(t, result.Found())
	assert.NotEmpty(t, result.Failure)
}

func TestGeocoderEmptyAddress(t *testing.T) {
	result := NewGeocoderWithBaseURL("http://127.0.0.1:0").Geocode("")
	assert.False(t, result.Found())
	assert.Equal(t, "empty address", result.Failure)
}
