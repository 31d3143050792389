package model

// Location is a single geographic fix.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParsedQuery is the structured search request derived from free text by the
// interpretation service. It lives for exactly one pipeline run.
type ParsedQuery struct {
	Query       string `json:"query"`
	RadiusM     int    `json:"radius_m"`
	WeightMode  string `json:"weight_mode"`
	BrandStrict bool   `json:"brand_strict"`
}

// ResultItem is one ranked place from a search response. Scores and their
// breakdown are computed by the search service and consumed for display only.
type ResultItem struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	FlagLabel      string             `json:"flag_label,omitempty"`
	Lat            float64            `json:"lat"`
	Lng            float64            `json:"lng"`
	DistanceM      float64            `json:"distance_m"`
	Rating         float64            `json:"rating"`
	RatingCount    int                `json:"rating_count"`
	HotScore       float64            `json:"hot_score"`
	Score          float64            `json:"score"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown"`
}

// RemoteConfig is the payload of GET /config.
type RemoteConfig struct {
	MapsJSAPIKey     string `json:"maps_js_api_key"`
	TurnstileSiteKey string `json:"turnstile_site_key"`
}
