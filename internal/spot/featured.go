package spot

import (
	"sort"
)

// Featured ranks rated spots for the featured list: most stars first, then
// the bigger forecast maximum, then name. n <= 0 returns every rated spot.
func Featured(spots map[string]Spot, n int) []Spot {
	ranked := make([]Spot, 0, len(spots))
	for _, s := range spots {
		if s.Rating == "" {
			continue
		}
		ranked = append(ranked, s)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.StarCount != b.StarCount {
			return a.StarCount > b.StarCount
		}
		if am, bm := waveMax(a), waveMax(b); am != bm {
			return am > bm
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func waveMax(s Spot) float64 {
	if s.WaveHeight == nil {
		return 0
	}
	return s.WaveHeight.Max
}
