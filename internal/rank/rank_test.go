package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/places"
)

var origin = model.Location{Lat: 25.0330, Lng: 121.5654}

// nearby builds a candidate roughly n meters north of origin.
func nearby(id string, meters float64, rating float64, count int) places.Place {
	return places.Place{
		ID:          id,
		Name:        "Place " + id,
		Lat:         origin.Lat + meters/111320.0,
		Lng:         origin.Lng,
		Rating:      rating,
		RatingCount: count,
	}
}

func TestWeights(t *testing.T) {
	for _, tc := range []struct {
		mode   string
		wd, wr float64
	}{
		{"distance_first", 0.7, 0.2},
		{"rating_first", 0.2, 0.7},
		{"balance", 0.4, 0.4},
		{"", 0.4, 0.4},
		{"bogus", 0.4, 0.4},
	} {
		wd, wr := Weights(tc.mode)
		assert.Equal(t, tc.wd, wd, tc.mode)
		assert.Equal(t, tc.wr, wr, tc.mode)
	}
}

func TestHotScoreSaturates(t *testing.T) {
	assert.Equal(t, 0.0, HotScore(0))
	assert.InDelta(t, 0.25, HotScore(250), 1e-9)
	assert.Equal(t, 1.0, HotScore(1000))
	assert.Equal(t, 1.0, HotScore(50000))
}

func TestFlagLabel(t *testing.T) {
	assert.Equal(t, "評論少", FlagLabel(4.5, 29))
	assert.Equal(t, "", FlagLabel(4.4, 29))
	assert.Equal(t, "", FlagLabel(4.9, 30))
}

func TestNormalizeForMatch(t *testing.T) {
	assert.Equal(t, "cafenoir", NormalizeForMatch("Café  Noir"))
	assert.Equal(t, "全家便利商店", NormalizeForMatch(" 全家 便利商店 "))
	assert.Equal(t, NormalizeForMatch("7-ELEVEN"), NormalizeForMatch("7-Eleven"))
}

func TestRankDropsBeyondRadius(t *testing.T) {
	items := Rank(Request{Origin: origin, RadiusM: 500, Query: "store"}, []places.Place{
		nearby("in", 100, 4.0, 100),
		nearby("out", 900, 5.0, 1000),
	})

	require.Len(t, items, 1)
	assert.Equal(t, "in", items[0].ID)
}

func TestRankBrandStrictFiltersByName(t *testing.T) {
	candidates := []places.Place{
		{ID: "match", Name: "全家便利商店 信義店", Lat: origin.Lat, Lng: origin.Lng, Rating: 4, RatingCount: 50},
		{ID: "other", Name: "7-ELEVEN 信義門市", Lat: origin.Lat, Lng: origin.Lng, Rating: 4, RatingCount: 50},
	}

	strict := Rank(Request{Origin: origin, RadiusM: 500, Query: "全家", BrandStrict: true}, candidates)
	require.Len(t, strict, 1)
	assert.Equal(t, "match", strict[0].ID)

	loose := Rank(Request{Origin: origin, RadiusM: 500, Query: "全家"}, candidates)
	assert.Len(t, loose, 2)
}

func TestRankScoreAndBreakdown(t *testing.T) {
	items := Rank(Request{Origin: origin, RadiusM: 1000, Query: "cafe", WeightMode: "rating_first"},
		[]places.Place{nearby("a", 200, 4.5, 300)})

	require.Len(t, items, 1)
	it := items[0]
	assert.InDelta(t, 200, it.DistanceM, 2)

	ds := it.ScoreBreakdown["distance_score"]
	rs := it.ScoreBreakdown["rating_score"]
	hot := it.ScoreBreakdown["hot_score"]
	assert.InDelta(t, 1-it.DistanceM/1000, ds, 1e-9)
	assert.InDelta(t, 0.9, rs, 1e-9)
	assert.InDelta(t, 0.3, hot, 1e-9)
	assert.Equal(t, 0.2, it.ScoreBreakdown["Wd"])
	assert.Equal(t, 0.7, it.ScoreBreakdown["Wr"])
	assert.InDelta(t, 0.2*ds+0.7*rs+hot, it.Score, 1e-9)
	assert.Equal(t, hot, it.HotScore)
}

func TestRankUnratedPlaceScoresZeroRating(t *testing.T) {
	items := Rank(Request{Origin: origin, RadiusM: 1000, Query: "cafe"},
		[]places.Place{nearby("a", 100, 0, 0)})

	require.Len(t, items, 1)
	assert.Zero(t, items[0].ScoreBreakdown["rating_score"])
	assert.Zero(t, items[0].ScoreBreakdown["hot_score"])
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	items := Rank(Request{Origin: origin, RadiusM: 2000, Query: "cafe", WeightMode: "balance"},
		[]places.Place{
			nearby("far_popular", 1500, 4.8, 2000),
			nearby("near_quiet", 100, 3.0, 10),
			nearby("mid", 700, 4.0, 400),
		})

	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
	}
}
