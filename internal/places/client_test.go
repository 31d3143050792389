package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTextRequestShape(t *testing.T) {
	var got map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"places":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("api-key").WithEndpoint(srv.URL).SearchText(context.Background(), "咖啡", 25.033, 121.5654, 500)
	require.NoError(t, err)

	assert.Equal(t, "api-key", headers.Get("X-Goog-Api-Key"))
	assert.Contains(t, headers.Get("X-Goog-FieldMask"), "places.displayName")

	assert.Equal(t, "咖啡", got["textQuery"])
	circle := got["locationBias"].(map[string]any)["circle"].(map[string]any)
	center := circle["center"].(map[string]any)
	assert.Equal(t, 25.033, center["latitude"])
	assert.Equal(t, 121.5654, center["longitude"])
	assert.Equal(t, float64(500), circle["radius"])
}

func TestSearchTextDecodesPlaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"places":[
			{"id":"a","displayName":{"text":"全家 信義店"},"location":{"latitude":25.03,"longitude":121.56},"rating":4.2,"userRatingCount":120},
			{"id":"no-coords","displayName":{"text":"Ghost"},"location":{}},
			{"id":"no-name","location":{"latitude":25.04,"longitude":121.57}}
		]}`))
	}))
	defer srv.Close()

	places, err := NewClient("k").WithEndpoint(srv.URL).SearchText(context.Background(), "全家", 25.0, 121.5, 1500)
	require.NoError(t, err)

	require.Len(t, places, 2, "candidates without coordinates are skipped")
	assert.Equal(t, "全家 信義店", places[0].Name)
	assert.Equal(t, 4.2, places[0].Rating)
	assert.Equal(t, 120, places[0].RatingCount)
	assert.Equal(t, "Unknown", places[1].Name)
}

func TestSearchTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("k").WithEndpoint(srv.URL).SearchText(context.Background(), "x", 0, 0, 100)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
}
