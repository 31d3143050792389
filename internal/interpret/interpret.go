// Package interpret derives structured search parameters from free text
// using a language model behind an OpenAI-compatible endpoint.
package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/linzh0131/find/internal/config"
	"github.com/linzh0131/find/internal/model"
)

const prompt = "You are a parser for a local store search system. " +
	"Extract best keyword, distance in meters, and sorting mode. " +
	"Return ONLY valid JSON with keys: query, radius_m, weight_mode, brand_strict. " +
	"weight_mode must be one of: balance, distance_first, rating_first. " +
	"brand_strict must be true if the text clearly refers to a specific brand name. " +
	"If distance/range is missing, use 1500. If keyword missing, use store."

// Service interprets query text. One instance per server process.
type Service struct {
	client *openai.Client
	model  string
}

func New(cfg config.LLMConfig) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Service{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Interpret asks the model for structured parameters and normalizes every
// field, so downstream code never sees out-of-range values.
func (s *Service) Interpret(ctx context.Context, text string) (model.ParsedQuery, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		MaxTokens:   200,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: "User text: " + text},
		},
	})
	if err != nil {
		return model.ParsedQuery{}, fmt.Errorf("model request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.ParsedQuery{}, fmt.Errorf("model returned no choices")
	}

	return Parse(resp.Choices[0].Message.Content)
}

// Parse decodes model output into a normalized query. Models occasionally
// wrap the JSON in prose; the salvage pass extracts the outermost object.
func Parse(raw string) (model.ParsedQuery, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return model.ParsedQuery{}, fmt.Errorf("model output is not JSON")
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
			return model.ParsedQuery{}, fmt.Errorf("model output is not JSON")
		}
	}

	return model.ParsedQuery{
		Query:       NormalizeQuery(fields["query"]),
		RadiusM:     NormalizeRadiusM(fields["radius_m"]),
		WeightMode:  NormalizeWeightMode(fields["weight_mode"]),
		BrandStrict: NormalizeBrandStrict(fields["brand_strict"]),
	}, nil
}

// NormalizeQuery trims the keyword, falling back to "store".
func NormalizeQuery(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return "store"
	}
	return s
}

// NormalizeRadiusM clamps the radius to [200, 10000] meters, default 1500.
func NormalizeRadiusM(v any) int {
	var radius int
	switch n := v.(type) {
	case float64:
		radius = int(n)
	case int:
		radius = n
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &f); err != nil {
			return 1500
		}
		radius = int(f)
	default:
		return 1500
	}
	if radius < 200 {
		return 200
	}
	if radius > 10000 {
		return 10000
	}
	return radius
}

// NormalizeWeightMode keeps only the three known modes, default balance.
func NormalizeWeightMode(v any) string {
	s, _ := v.(string)
	switch s {
	case "distance_first", "rating_first", "balance":
		return s
	}
	return "balance"
}

// NormalizeBrandStrict coerces loose model output into a bool.
func NormalizeBrandStrict(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}
