// Package speech is the client for the speech:recognize REST endpoint.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const recognizeURL = "https://speech.googleapis.com/v1/speech:recognize"

// UpstreamError carries the status and decoded error body of a failed
// recognize call, so the transcribe handler can forward the details.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("speech API error: %d", e.StatusCode)
}

type Client struct {
	apiKey string
	// endpoint overrides the recognize URL, for tests.
	endpoint string
	http     *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: recognizeURL,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

// Request is one recognition call. ChannelCount zero means unspecified; an
// empty Encoding means opus-in-webm.
type Request struct {
	AudioBase64  string
	SampleRateHz int
	LanguageCode string
	ChannelCount int
	Encoding     string
}

type recognizeConfig struct {
	Encoding          string `json:"encoding"`
	SampleRateHertz   int    `json:"sampleRateHertz"`
	LanguageCode      string `json:"languageCode"`
	AudioChannelCount int    `json:"audioChannelCount,omitempty"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognize transcribes a recording in the declared encoding. The joined
// transcript may be empty; deciding what that means is the caller's concern.
func (c *Client) Recognize(ctx context.Context, req Request) (string, error) {
	encoding := req.Encoding
	if encoding == "" {
		encoding = "WEBM_OPUS"
	}
	payload, err := json.Marshal(struct {
		Config recognizeConfig `json:"config"`
		Audio  struct {
			Content string `json:"content"`
		} `json:"audio"`
	}{
		Config: recognizeConfig{
			Encoding:          encoding,
			SampleRateHertz:   req.SampleRateHz,
			LanguageCode:      req.LanguageCode,
			AudioChannelCount: req.ChannelCount,
		},
		Audio: struct {
			Content string `json:"content"`
		}{Content: req.AudioBase64},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		if !json.Valid(body) {
			body, _ = json.Marshal(map[string]string{"message": string(body)})
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}

	var decoded recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var parts []string
	for _, result := range decoded.Results {
		if len(result.Alternatives) > 0 && result.Alternatives[0].Transcript != "" {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}
