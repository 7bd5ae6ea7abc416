package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeResolvesFirstHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Av. Paulista, 1000, São Paulo, SP, Brasil", q.Get("q"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		w.Write([]byte(`[{"lat":"-23.5613","lon":"-46.6565"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	pt, found, err := c.Geocode(context.Background(), "Av. Paulista, 1000, São Paulo, SP, Brasil")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, -23.5613, pt.Lat, 0.0001)
	assert.InDelta(t, -46.6565, pt.Lon, 0.0001)
}

func TestGeocodeNoHitsIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, found, err := c.Geocode(context.Background(), "endereço inexistente")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGeocodeEmptyQuerySkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, found, err := c.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, called)
}

func TestGeocodeMalformedCoordinatesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"not-a-number","lon":"0"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, _, err := c.Geocode(context.Background(), "qualquer lugar")
	assert.Error(t, err)
}
