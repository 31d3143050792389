// Package places is the client for the Places text-search endpoint.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
)

const (
	textSearchURL = "https://places.googleapis.com/v1/places:searchText"

	fieldMask = "places.id,places.displayName,places.location,places.rating,places.userRatingCount," +
		"places.formattedAddress,places.types,places.websiteUri,places.nationalPhoneNumber," +
		"places.businessStatus"
)

// UpstreamError is a non-2xx answer from the places endpoint.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("places API error: %d", e.StatusCode)
}

// Place is one candidate returned by the text search, before ranking.
type Place struct {
	ID          string
	Name        string
	Lat         float64
	Lng         float64
	Rating      float64
	RatingCount int
}

type Client struct {
	http   *http.Client
	apiKey string
	// endpoint overrides the search URL, for tests.
	endpoint string
}

// NewClient builds a places client with a Chrome-fingerprint TLS transport.
func NewClient(apiKey string) *Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}

			// Chrome TLS spec with HTTP/1.1 ALPN; the stdlib transport does
			// not speak h2 over a custom DialTLS.
			spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
			if err != nil {
				conn.Close()
				return nil, err
			}
			for i, ext := range spec.Extensions {
				if alpn, ok := ext.(*utls.ALPNExtension); ok {
					alpn.AlpnProtocols = []string{"http/1.1"}
					spec.Extensions[i] = alpn
					break
				}
			}

			tlsConn := utls.UClient(conn, &utls.Config{
				ServerName: host,
			}, utls.HelloCustom)
			if err := tlsConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, err
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}

			return tlsConn, nil
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		apiKey:   apiKey,
		endpoint: textSearchURL,
	}
}

type searchTextRequest struct {
	TextQuery    string `json:"textQuery"`
	LocationBias struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationBias"`
}

type searchTextResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		Location struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"location"`
		Rating          float64 `json:"rating"`
		UserRatingCount int     `json:"userRatingCount"`
	} `json:"places"`
}

// SearchText runs a text search biased to a circle around the origin.
// Candidates without coordinates are skipped.
func (c *Client) SearchText(ctx context.Context, query string, lat, lng float64, radiusM int) ([]Place, error) {
	var body searchTextRequest
	body.TextQuery = query
	body.LocationBias.Circle.Center.Latitude = lat
	body.LocationBias.Circle.Center.Longitude = lng
	body.LocationBias.Circle.Radius = float64(radiusM)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	var decoded searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	out := make([]Place, 0, len(decoded.Places))
	for _, p := range decoded.Places {
		if p.Location.Latitude == nil || p.Location.Longitude == nil {
			continue
		}
		name := p.DisplayName.Text
		if name == "" {
			name = "Unknown"
		}
		out = append(out, Place{
			ID:          p.ID,
			Name:        name,
			Lat:         *p.Location.Latitude,
			Lng:         *p.Location.Longitude,
			Rating:      p.Rating,
			RatingCount: p.UserRatingCount,
		})
	}
	return out, nil
}

// WithEndpoint redirects searches to an alternate URL, for tests.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	c.http = &http.Client{Timeout: 10 * time.Second}
	return c
}
