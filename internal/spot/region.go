package spot

// RegionPadding is added to every side of a needed box before fetching so
// that small pans and zooms are served from the padded result.
const RegionPadding = 0.4

// Viewport is the visible map area as reported by the map view.
type Viewport struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

// Needed returns the bounding box the viewport actually shows.
func (v Viewport) Needed() Region {
	return Region{
		Top:    v.Latitude + v.LatitudeDelta/2,
		Bottom: v.Latitude - v.LatitudeDelta/2,
		Left:   v.Longitude - v.LongitudeDelta/2,
		Right:  v.Longitude + v.LongitudeDelta/2,
	}
}

// Region is a lat/lon rectangle in degrees.
type Region struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Pad returns r grown by margin degrees on every side.
func (r Region) Pad(margin float64) Region {
	return Region{
		Top:    r.Top + margin,
		Bottom: r.Bottom - margin,
		Left:   r.Left - margin,
		Right:  r.Right + margin,
	}
}

// Contains reports whether r fully covers other. Edges may coincide.
func (r Region) Contains(other Region) bool {
	return r.Top >= other.Top &&
		r.Bottom <= other.Bottom &&
		r.Left <= other.Left &&
		r.Right >= other.Right
}

// ContainsPoint reports whether the point lies inside r.
func (r Region) ContainsPoint(lat, lon float64) bool {
	return lat <= r.Top && lat >= r.Bottom && lon >= r.Left && lon <= r.Right
}
