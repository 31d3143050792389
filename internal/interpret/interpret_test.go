package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linzh0131/find/internal/model"
)

func TestParseWellFormed(t *testing.T) {
	got, err := Parse(`{"query":"咖啡","radius_m":500,"weight_mode":"rating_first","brand_strict":false}`)
	require.NoError(t, err)
	assert.Equal(t, model.ParsedQuery{
		Query:      "咖啡",
		RadiusM:    500,
		WeightMode: "rating_first",
	}, got)
}

func TestParseSalvagesWrappedJSON(t *testing.T) {
	raw := "Here is the result:\n```json\n" +
		`{"query":"ramen","radius_m":800,"weight_mode":"balance","brand_strict":true}` +
		"\n```\nLet me know if you need anything else."

	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ramen", got.Query)
	assert.Equal(t, 800, got.RadiusM)
	assert.True(t, got.BrandStrict)
}

func TestParseRejectsNonJSON(t *testing.T) {
	_, err := Parse("I could not parse that request.")
	require.Error(t, err)
}

func TestParseNormalizesMissingFields(t *testing.T) {
	got, err := Parse(`{}`)
	require.NoError(t, err)
	assert.Equal(t, model.ParsedQuery{
		Query:      "store",
		RadiusM:    1500,
		WeightMode: "balance",
	}, got)
}

func TestNormalizeRadiusM(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want int
	}{
		{float64(500), 500},
		{float64(50), 200},      // below floor
		{float64(99999), 10000}, // above ceiling
		{"800", 800},
		{" 1200 ", 1200},
		{"not a number", 1500},
		{nil, 1500},
		{true, 1500},
	} {
		assert.Equal(t, tc.want, NormalizeRadiusM(tc.in), "%v", tc.in)
	}
}

func TestNormalizeWeightMode(t *testing.T) {
	assert.Equal(t, "distance_first", NormalizeWeightMode("distance_first"))
	assert.Equal(t, "rating_first", NormalizeWeightMode("rating_first"))
	assert.Equal(t, "balance", NormalizeWeightMode("balance"))
	assert.Equal(t, "balance", NormalizeWeightMode("closest"))
	assert.Equal(t, "balance", NormalizeWeightMode(nil))
}

func TestNormalizeBrandStrict(t *testing.T) {
	assert.True(t, NormalizeBrandStrict(true))
	assert.True(t, NormalizeBrandStrict("true"))
	assert.True(t, NormalizeBrandStrict("Yes"))
	assert.True(t, NormalizeBrandStrict("1"))
	assert.False(t, NormalizeBrandStrict(false))
	assert.False(t, NormalizeBrandStrict("no"))
	assert.False(t, NormalizeBrandStrict(nil))
	assert.False(t, NormalizeBrandStrict(1.0))
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "coffee", NormalizeQuery(" coffee "))
	assert.Equal(t, "store", NormalizeQuery("   "))
	assert.Equal(t, "store", NormalizeQuery(nil))
}
