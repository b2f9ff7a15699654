package spot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/swellmap/internal/spot"
)

func TestDemoSpots(t *testing.T) {
	spots := spot.DemoSpots()
	require.Len(t, spots, 5)

	swanage, ok := spots["61395abb84ce2eb3d50066c8"]
	require.True(t, ok)
	assert.Equal(t, "Swanage", swanage.Name)
	require.NotNil(t, swanage.Lat)
	assert.Equal(t, 50.613, *swanage.Lat)

	for id, s := range spots {
		assert.Equal(t, id, s.ID)
		assert.Nil(t, s.Photo, "demo spots have no cameras")
		assert.True(t, s.Rating.Valid())
		assert.Equal(t, s.Rating.StarCount(), s.StarCount)

		require.NotNil(t, s.WaveHeight)
		assert.GreaterOrEqual(t, s.WaveHeight.Max, s.WaveHeight.Min)
		assert.LessOrEqual(t, s.WaveHeight.Max-s.WaveHeight.Min, 2.0)

		require.Len(t, s.Surf, 5)
		for _, d := range s.Surf {
			assert.Equal(t, min(d.Morning.Min, d.Noon.Min, d.Night.Min), d.All.Min)
			assert.Equal(t, max(d.Morning.Max, d.Noon.Max, d.Night.Max), d.All.Max)
		}
	}
}

func TestDemoSpots_Deterministic(t *testing.T) {
	assert.Equal(t, spot.DemoSpots(), spot.DemoSpots())
}

func TestFeatured(t *testing.T) {
	spots := map[string]spot.Spot{
		"a": {ID: "a", Name: "Alpha", Rating: spot.RatingGood, StarCount: 4, WaveHeight: &spot.WaveHeight{Max: 2}},
		"b": {ID: "b", Name: "Bravo", Rating: spot.RatingGood, StarCount: 4, WaveHeight: &spot.WaveHeight{Max: 5}},
		"c": {ID: "c", Name: "Charlie", Rating: spot.RatingEpic, StarCount: 5},
		"d": {ID: "d", Name: "Delta"},
		"e": {ID: "e", Name: "Echo", Rating: spot.RatingFlat, StarCount: 0},
	}

	all := spot.Featured(spots, 0)
	require.Len(t, all, 4, "unrated spots are left out")
	assert.Equal(t, []string{"c", "b", "a", "e"}, ids(all))

	top := spot.Featured(spots, 2)
	assert.Equal(t, []string{"c", "b"}, ids(top))
}

func ids(spots []spot.Spot) []string {
	out := make([]string, len(spots))
	for i, s := range spots {
		out[i] = s.ID
	}
	return out
}
