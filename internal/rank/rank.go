// Package rank scores and orders place candidates for a search request.
package rank

import (
	"sort"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/places"
)

// Weights returns the distance and rating weights (Wd, Wr) for a weight
// mode. Unknown modes fall back to balance.
func Weights(mode string) (wd, wr float64) {
	switch mode {
	case "distance_first":
		return 0.7, 0.2
	case "rating_first":
		return 0.2, 0.7
	default:
		return 0.4, 0.4
	}
}

// HotScore maps a review count onto [0,1], saturating at 1000 reviews.
func HotScore(ratingCount int) float64 {
	s := float64(ratingCount) / 1000.0
	if s > 1 {
		return 1
	}
	return s
}

// FlagLabel annotates places whose high rating rests on few reviews.
func FlagLabel(rating float64, ratingCount int) string {
	if ratingCount < 30 && rating >= 4.5 {
		return "評論少"
	}
	return ""
}

// NormalizeForMatch lowercases, strips diacritics, and removes all
// whitespace, so brand matching tolerates spacing and accent variants.
func NormalizeForMatch(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	folded, _, _ := transform.String(t, strings.ToLower(s))
	return strings.Join(strings.Fields(folded), "")
}

// Request carries the ranking parameters of one search call.
type Request struct {
	Origin      model.Location
	RadiusM     int
	Query       string
	WeightMode  string
	BrandStrict bool
}

// Rank scores candidates and returns result items ordered by score
// descending. Candidates beyond the radius are dropped; with BrandStrict
// set, candidates whose name does not contain the normalized query are
// dropped too.
func Rank(req Request, candidates []places.Place) []model.ResultItem {
	wd, wr := Weights(req.WeightMode)
	origin := orb.Point{req.Origin.Lng, req.Origin.Lat}
	matchQuery := NormalizeForMatch(req.Query)

	items := make([]model.ResultItem, 0, len(candidates))
	for _, p := range candidates {
		distanceM := geo.Distance(origin, orb.Point{p.Lng, p.Lat})
		if distanceM > float64(req.RadiusM) {
			continue
		}
		if req.BrandStrict && matchQuery != "" &&
			!strings.Contains(NormalizeForMatch(p.Name), matchQuery) {
			continue
		}

		distanceScore := 1 - distanceM/float64(req.RadiusM)
		if distanceScore < 0 {
			distanceScore = 0
		}
		var ratingScore float64
		if p.Rating > 0 {
			ratingScore = p.Rating / 5
		}
		hot := HotScore(p.RatingCount)
		score := wd*distanceScore + wr*ratingScore + hot

		items = append(items, model.ResultItem{
			ID:          p.ID,
			Name:        p.Name,
			FlagLabel:   FlagLabel(p.Rating, p.RatingCount),
			Lat:         p.Lat,
			Lng:         p.Lng,
			DistanceM:   distanceM,
			Rating:      p.Rating,
			RatingCount: p.RatingCount,
			HotScore:    hot,
			Score:       score,
			ScoreBreakdown: map[string]float64{
				"distance_score": distanceScore,
				"rating_score":   ratingScore,
				"hot_score":      hot,
				"Wd":             wd,
				"Wr":             wr,
			},
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items
}
