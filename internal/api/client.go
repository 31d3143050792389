// Package api is the typed client for the find backend endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/linzh0131/find/internal/model"
)

// ServiceError is an error reported by the backend itself, as opposed to a
// transport failure. Its message is shown to the user verbatim.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Client talks to the find backend. One instance serves the whole session.
type Client struct {
	baseURL string
	// verifyToken, when non-empty, authorizes API calls via the
	// X-Verification-Token header.
	verifyToken string
	http        *http.Client
}

func NewClient(baseURL, verifyToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		verifyToken: verifyToken,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchConfig retrieves the runtime configuration from GET /config.
func (c *Client) FetchConfig(ctx context.Context) (model.RemoteConfig, error) {
	var cfg model.RemoteConfig
	if err := c.get(ctx, "/config", &cfg); err != nil {
		return model.RemoteConfig{}, fmt.Errorf("fetching config: %w", err)
	}
	return cfg, nil
}

// Interpret turns free text into a structured query via POST /api/interpret.
func (c *Client) Interpret(ctx context.Context, text string) (model.ParsedQuery, error) {
	body := struct {
		Text string `json:"text"`
	}{Text: text}

	var resp struct {
		model.ParsedQuery
		Error *errorBody `json:"error"`
	}
	if err := c.post(ctx, "/api/interpret", body, &resp); err != nil {
		return model.ParsedQuery{}, err
	}
	if resp.Error != nil {
		return model.ParsedQuery{}, &ServiceError{Message: resp.Error.Message}
	}
	return resp.ParsedQuery, nil
}

// Search runs the ranked search via POST /api/search.
func (c *Client) Search(ctx context.Context, loc model.Location, q model.ParsedQuery) ([]model.ResultItem, error) {
	body := struct {
		Lat         float64 `json:"lat"`
		Lng         float64 `json:"lng"`
		RadiusM     int     `json:"radius_m"`
		Query       string  `json:"query"`
		WeightMode  string  `json:"weight_mode"`
		BrandStrict bool    `json:"brand_strict"`
	}{loc.Lat, loc.Lng, q.RadiusM, q.Query, q.WeightMode, q.BrandStrict}

	var resp struct {
		Items []model.ResultItem `json:"items"`
		Error *errorBody         `json:"error"`
	}
	if err := c.post(ctx, "/api/search", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &ServiceError{Message: resp.Error.Message}
	}
	return resp.Items, nil
}

// TranscribeRequest carries one finalized recording. Encoding names the
// payload format the capture device produced (WEBM_OPUS, LINEAR16).
type TranscribeRequest struct {
	AudioBase64  string `json:"audio_base64"`
	SampleRateHz int    `json:"sample_rate_hz"`
	LanguageCode string `json:"language_code"`
	ChannelCount int    `json:"channel_count,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
}

// Transcribe sends a recording to POST /api/transcribe and returns the
// transcript, which may be empty.
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/api/transcribe", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// detailBody is the HTTP-level error shape of /api/transcribe.
type detailBody struct {
	Detail struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"detail"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.verifyToken != "" {
		req.Header.Set("X-Verification-Token", c.verifyToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var detail detailBody
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail.Message != "" {
			return &ServiceError{Message: detail.Detail.Message}
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
