// Package locate obtains a single geographic fix for the session.
package locate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/linzh0131/find/internal/model"
)

// LocationError reports a failed fix with the provider-supplied reason.
type LocationError struct {
	Reason string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("location unavailable: %s", e.Reason)
}

// Locator produces one geographic fix per call. It is invoked once at
// startup and may be re-invoked, but is never retried automatically.
type Locator interface {
	Acquire(ctx context.Context) (model.Location, error)
}

// Fixed returns a pinned location from configuration.
type Fixed struct {
	Loc model.Location
}

func (f Fixed) Acquire(context.Context) (model.Location, error) {
	return f.Loc, nil
}

const ipLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

// IPLocator resolves the host's approximate position from its public IP.
type IPLocator struct {
	// Endpoint overrides the lookup URL, for tests.
	Endpoint string
	client   *http.Client
}

func NewIPLocator() *IPLocator {
	return &IPLocator{
		Endpoint: ipLookupURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type ipLookupResult struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) Acquire(ctx context.Context) (model.Location, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", l.Endpoint, nil)
	if err != nil {
		return model.Location{}, &LocationError{Reason: err.Error()}
	}
	req.Header.Set("User-Agent", "find/0.1 (voice place finder)")

	client := l.client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.Location{}, &LocationError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Location{}, &LocationError{Reason: fmt.Sprintf("lookup returned status %d", resp.StatusCode)}
	}

	var result ipLookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.Location{}, &LocationError{Reason: fmt.Sprintf("decoding lookup response: %v", err)}
	}

	if result.Status != "success" {
		reason := result.Message
		if reason == "" {
			reason = "lookup failed"
		}
		return model.Location{}, &LocationError{Reason: reason}
	}

	return model.Location{Lat: result.Lat, Lng: result.Lon}, nil
}
