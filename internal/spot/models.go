// Package spot defines the merged surf spot record and the adapters that
// turn upstream payload shapes into partial updates of it.
package spot

import (
	"errors"
	"math"
)

// Spot errors.
var (
	ErrInvalidRecord = errors.New("invalid spot record")
	ErrMissingID     = errors.New("spot record has no id")
)

// Rating is the categorical surf condition label reported upstream.
type Rating string

const (
	RatingFlat       Rating = "FLAT"
	RatingVeryPoor   Rating = "VERY_POOR"
	RatingPoor       Rating = "POOR"
	RatingPoorToFair Rating = "POOR_TO_FAIR"
	RatingFair       Rating = "FAIR"
	RatingFairToGood Rating = "FAIR_TO_GOOD"
	RatingGood       Rating = "GOOD"
	RatingVeryGood   Rating = "VERY_GOOD"
	RatingGoodToEpic Rating = "GOOD_TO_EPIC"
	RatingEpic       Rating = "EPIC"
)

// Ratings lists every known rating from worst to best.
var Ratings = []Rating{
	RatingFlat,
	RatingVeryPoor,
	RatingPoor,
	RatingPoorToFair,
	RatingFair,
	RatingFairToGood,
	RatingGood,
	RatingVeryGood,
	RatingGoodToEpic,
	RatingEpic,
}

// ratingStars maps ratings onto a five star scale.
// See https://www.surfline.com/surf-news/surflines-rating-surf-heights-quality/1417
var ratingStars = map[Rating]float64{
	RatingFlat:       0,
	RatingVeryPoor:   0.5,
	RatingPoor:       1,
	RatingPoorToFair: 2,
	RatingFair:       3,
	RatingFairToGood: 3.5,
	RatingGood:       4,
	RatingVeryGood:   4.5,
	RatingGoodToEpic: 4.5,
	RatingEpic:       5,
}

// StarCount returns the 0-5 star value for the rating.
// Unrecognized ratings score 0.
func (r Rating) StarCount() float64 {
	return ratingStars[r]
}

// Valid reports whether r is one of the known ratings.
func (r Rating) Valid() bool {
	_, ok := ratingStars[r]
	return ok
}

// PeriodsPerDay is the number of forecast entries upstream returns per day.
const PeriodsPerDay = 4

// WaveHeight is the current summary forecast for a spot.
type WaveHeight struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	HumanRelation string  `json:"humanRelation"`
}

// Period is the wave height range for one part of a day.
type Period struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DayRange aggregates the extremes of a whole day.
type DayRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	MaxPlus bool    `json:"maxPlus"`
}

// DaySurf is the forecast for one day.
type DaySurf struct {
	Morning Period   `json:"morning"`
	Noon    Period   `json:"noon"`
	Night   Period   `json:"night"`
	All     DayRange `json:"all"`
}

// Spot is the merged record for one surf location.
// Only ID is guaranteed; every other field fills in as payloads arrive.
type Spot struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Lat        *float64    `json:"lat,omitempty"`
	Lon        *float64    `json:"lon,omitempty"`
	Photo      *string     `json:"photo"`
	Rating     Rating      `json:"rating,omitempty"`
	StarCount  float64     `json:"starCount"`
	WaveHeight *WaveHeight `json:"waveHeight,omitempty"`
	Surf       []DaySurf   `json:"surf,omitempty"`
}

// NewPlaceholder returns an identity-only spot.
func NewPlaceholder(id string) Spot {
	return Spot{ID: id}
}

// IsPlaceholder reports whether no data beyond the ID has been merged.
func (s Spot) IsPlaceholder() bool {
	return s.Name == "" && s.Lat == nil && s.Lon == nil && s.Photo == nil &&
		s.Rating == "" && s.WaveHeight == nil && s.Surf == nil
}

// HasReport reports whether detailed forecast data has been merged.
func (s Spot) HasReport() bool {
	return s.Surf != nil
}

// Apply returns a copy of s with every field present in u overwritten.
// The ID is never changed.
func (s Spot) Apply(u Update) Spot {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Lat != nil {
		lat := *u.Lat
		s.Lat = &lat
	}
	if u.Lon != nil {
		lon := *u.Lon
		s.Lon = &lon
	}
	if u.Photo.Set {
		s.Photo = u.Photo.URL
	}
	if u.Rating != nil {
		s.Rating = *u.Rating
		s.StarCount = s.Rating.StarCount()
	}
	if u.WaveHeight != nil {
		wh := *u.WaveHeight
		s.WaveHeight = &wh
	}
	return s
}

// WithSurf returns a copy of s with the daily forecast rebuilt from raw
// forecast periods. Periods come in groups of four per day: a leading
// summary entry, then morning, noon and night. A trailing partial group is
// ignored.
func (s Spot) WithSurf(periods []SurfPeriod) Spot {
	days := make([]DaySurf, 0, len(periods)/PeriodsPerDay)
	for i := 0; i+PeriodsPerDay <= len(periods); i += PeriodsPerDay {
		morning, noon, night := periods[i+1], periods[i+2], periods[i+3]

		dayMin := math.Min(morning.Min, math.Min(noon.Min, night.Min))
		if s.WaveHeight != nil {
			dayMin = math.Min(dayMin, s.WaveHeight.Min)
		}

		dayMax := math.Inf(-1)
		plus := false
		for _, p := range []SurfPeriod{morning, noon, night} {
			switch {
			case p.Max > dayMax:
				dayMax = p.Max
				plus = p.Plus
			case p.Max == dayMax:
				plus = plus || p.Plus
			}
		}

		days = append(days, DaySurf{
			Morning: morning.Period(),
			Noon:    noon.Period(),
			Night:   night.Period(),
			All: DayRange{
				Min:     dayMin,
				Max:     dayMax,
				MaxPlus: plus,
			},
		})
	}

	s.Surf = days
	return s
}
