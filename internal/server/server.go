// Package server implements the find backend: query interpretation, ranked
// place search, and speech transcription behind a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linzh0131/find/internal/config"
	"github.com/linzh0131/find/internal/logger"
	"github.com/linzh0131/find/internal/metrics"
	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/places"
	"github.com/linzh0131/find/internal/rank"
	"github.com/linzh0131/find/internal/speech"
)

// Interpreter derives structured search parameters from free text.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (model.ParsedQuery, error)
}

// PlaceSearcher returns raw place candidates around an origin.
type PlaceSearcher interface {
	SearchText(ctx context.Context, query string, lat, lng float64, radiusM int) ([]places.Place, error)
}

// Recognizer transcribes a recording.
type Recognizer interface {
	Recognize(ctx context.Context, req speech.Request) (string, error)
}

// TokenVerifier validates the verification token attached to API calls.
type TokenVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}

// Server handles the find API.
type Server struct {
	cfg         config.ServerConfig
	logger      *zap.Logger
	interpreter Interpreter
	searcher    PlaceSearcher
	recognizer  Recognizer
	verifier    TokenVerifier
}

func New(cfg config.ServerConfig, log *zap.Logger, interpreter Interpreter, searcher PlaceSearcher, recognizer Recognizer, verifier TokenVerifier) *Server {
	return &Server{
		cfg:         cfg,
		logger:      log,
		interpreter: interpreter,
		searcher:    searcher,
		recognizer:  recognizer,
		verifier:    verifier,
	}
}

// Routes builds the router with instrumentation and verification wired in.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleConfig)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireVerification)
		r.Post("/interpret", s.handleInterpret)
		r.Post("/search", s.handleSearch)
		r.Post("/transcribe", s.handleTranscribe)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := s.logger.With(
			zap.String("request_id", uuid.NewString()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		reqLogger.Debug("request received")
		next.ServeHTTP(w, r.WithContext(logger.ContextWithLogger(r.Context(), reqLogger)))
	})
}

// requireVerification rejects API calls without a valid token when a
// Turnstile secret is configured. With no secret it is a pass-through.
func (s *Server) requireVerification(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil || !s.verifier.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get("X-Verification-Token")
		if err := s.verifier.Verify(r.Context(), token, r.RemoteAddr); err != nil {
			writeDetail(w, http.StatusForbidden, "VERIFICATION_FAILED", err.Error(), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.RemoteConfig{
		MapsJSAPIKey:     s.cfg.MapsJSAPIKey,
		TurnstileSiteKey: s.cfg.Turnstile.SiteKey,
	})
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}

	if s.cfg.LLM.APIKey == "" {
		writeServiceError(w, "MISSING_API_KEY", "LLM api_key not set")
		return
	}

	parsed, err := s.interpreter.Interpret(r.Context(), req.Text)
	if err != nil {
		metrics.ObserveUpstreamError("interpret")
		logger.FromContext(r.Context()).Warn("interpret failed", zap.Error(err))
		writeServiceError(w, "UPSTREAM_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, parsed)
}

type searchRequest struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusM     int     `json:"radius_m"`
	Query       string  `json:"query"`
	WeightMode  string  `json:"weight_mode"`
	BrandStrict bool    `json:"brand_strict"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}

	if s.cfg.PlacesAPIKey == "" {
		writeServiceError(w, "MISSING_API_KEY", "places api_key not set")
		return
	}

	query := req.Query
	if query == "" {
		query = "store"
	}
	if req.RadiusM <= 0 {
		req.RadiusM = 1500
	}

	candidates, err := s.searcher.SearchText(r.Context(), query, req.Lat, req.Lng, req.RadiusM)
	if err != nil {
		metrics.ObserveUpstreamError("places")
		logger.FromContext(r.Context()).Warn("place search failed", zap.Error(err))
		writeServiceError(w, "UPSTREAM_ERROR", err.Error())
		return
	}

	items := rank.Rank(rank.Request{
		Origin:      model.Location{Lat: req.Lat, Lng: req.Lng},
		RadiusM:     req.RadiusM,
		Query:       req.Query,
		WeightMode:  req.WeightMode,
		BrandStrict: req.BrandStrict,
	}, candidates)

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AudioBase64  string `json:"audio_base64"`
		SampleRateHz int    `json:"sample_rate_hz"`
		LanguageCode string `json:"language_code"`
		ChannelCount int    `json:"channel_count"`
		Encoding     string `json:"encoding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}

	if s.cfg.SpeechAPIKey == "" {
		writeDetail(w, http.StatusBadRequest, "MISSING_API_KEY", "speech api_key not set", nil)
		return
	}
	if req.AudioBase64 == "" {
		writeDetail(w, http.StatusBadRequest, "INVALID_REQUEST", "audio_base64 required", nil)
		return
	}
	if req.SampleRateHz <= 0 {
		req.SampleRateHz = 48000
	}
	if req.LanguageCode == "" {
		req.LanguageCode = "en-US"
	}
	switch req.Encoding {
	case "":
		req.Encoding = "WEBM_OPUS"
	case "WEBM_OPUS", "LINEAR16":
	default:
		writeDetail(w, http.StatusBadRequest, "INVALID_REQUEST", "unsupported encoding "+req.Encoding, nil)
		return
	}

	text, err := s.recognizer.Recognize(r.Context(), speech.Request{
		AudioBase64:  req.AudioBase64,
		SampleRateHz: req.SampleRateHz,
		LanguageCode: req.LanguageCode,
		ChannelCount: req.ChannelCount,
		Encoding:     req.Encoding,
	})
	if err != nil {
		metrics.ObserveUpstreamError("speech")
		logger.FromContext(r.Context()).Warn("transcription failed", zap.Error(err))
		var upstream *speech.UpstreamError
		if errors.As(err, &upstream) {
			writeDetail(w, http.StatusBadGateway, "UPSTREAM_ERROR", upstream.Error(), upstream.Body)
			return
		}
		writeDetail(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeServiceError writes the in-band error shape of interpret and search:
// a 200 response whose body carries the error object.
func writeServiceError(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// writeDetail writes the HTTP-level error shape used by transcribe and
// request validation.
func writeDetail(w http.ResponseWriter, status int, code, message string, details json.RawMessage) {
	detail := map[string]any{"code": code, "message": message}
	if len(details) > 0 {
		detail["details"] = details
	}
	writeJSON(w, status, map[string]any{"detail": detail})
}
