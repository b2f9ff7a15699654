package spot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Shape identifies which upstream payload an Update was resolved from.
type Shape string

const (
	// ShapeMapview is the flat record returned by the region (mapview) endpoint.
	ShapeMapview Shape = "mapview"

	// ShapeReport is the nested {spot, forecast} record returned by the report endpoint.
	ShapeReport Shape = "report"
)

// Update is a partial spot update. Nil fields were absent from the payload
// and leave the merged spot untouched.
type Update struct {
	ID         string
	Shape      Shape
	Name       *string
	Lat        *float64
	Lon        *float64
	Photo      PhotoUpdate
	Rating     *Rating
	WaveHeight *WaveHeight
}

// PhotoUpdate carries the derived photo URL. URL is nil when the payload
// listed no cameras; Set is false when it carried no camera list at all.
type PhotoUpdate struct {
	Set bool
	URL *string
}

// PhotoStamp is the cache-busting suffix appended to camera stills so that
// an hour-old image is never served from an intermediate cache.
type PhotoStamp string

// NewPhotoStamp builds the suffix for t, formatted as ?YYYYMMDDHH.
func NewPhotoStamp(t time.Time) PhotoStamp {
	return PhotoStamp("?" + t.Format("2006010215"))
}

// Camera is a spot camera as listed upstream.
type Camera struct {
	StillURLFull string `json:"stillUrlFull"`
}

// Conditions wraps the rating label.
type Conditions struct {
	Value Rating `json:"value"`
}

// SpotRecord holds the identity and location fields shared by the mapview
// record and the spot half of a report.
type SpotRecord struct {
	ID      string   `json:"_id"`
	Name    *string  `json:"name"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Cameras []Camera `json:"cameras"`
}

// MapviewRecord is the flat shape: spot fields and forecast fields together.
type MapviewRecord struct {
	SpotRecord
	Conditions *Conditions `json:"conditions"`
	WaveHeight *WaveHeight `json:"waveHeight"`
}

// ForecastRecord is the forecast half of a report.
type ForecastRecord struct {
	Conditions *Conditions `json:"conditions"`
	WaveHeight *WaveHeight `json:"waveHeight"`
}

// ReportRecord is the nested shape returned by the report endpoint.
type ReportRecord struct {
	Spot     SpotRecord     `json:"spot"`
	Forecast ForecastRecord `json:"forecast"`
}

// SurfPeriodRecord is one interval of the surf forecast endpoint.
type SurfPeriodRecord struct {
	Timestamp int64 `json:"timestamp"`
	Surf      struct {
		Min  float64 `json:"min"`
		Max  float64 `json:"max"`
		Plus bool    `json:"plus"`
	} `json:"surf"`
}

// SurfPeriod is a single forecast interval.
type SurfPeriod struct {
	Min  float64
	Max  float64
	Plus bool
}

// Period drops the plus qualifier.
func (p SurfPeriod) Period() Period {
	return Period{Min: p.Min, Max: p.Max}
}

// SurfPeriods converts forecast interval records.
func SurfPeriods(records []SurfPeriodRecord) []SurfPeriod {
	periods := make([]SurfPeriod, len(records))
	for i, r := range records {
		periods[i] = SurfPeriod{Min: r.Surf.Min, Max: r.Surf.Max, Plus: r.Surf.Plus}
	}
	return periods
}

// FromMapview resolves a flat record.
func FromMapview(rec MapviewRecord, stamp PhotoStamp) (Update, error) {
	if rec.ID == "" {
		return Update{}, ErrMissingID
	}
	u := fromSpotRecord(rec.SpotRecord, stamp)
	u.Shape = ShapeMapview
	applyForecast(&u, rec.Conditions, rec.WaveHeight)
	return u, nil
}

// FromReport resolves a nested {spot, forecast} record.
func FromReport(rec ReportRecord, stamp PhotoStamp) (Update, error) {
	if rec.Spot.ID == "" {
		return Update{}, ErrMissingID
	}
	u := fromSpotRecord(rec.Spot, stamp)
	u.Shape = ShapeReport
	applyForecast(&u, rec.Forecast.Conditions, rec.Forecast.WaveHeight)
	return u, nil
}

// DecodeRecord resolves a raw record of either shape. A record without an
// _id field but with a spot field is the nested report shape; anything else
// is treated as flat.
func DecodeRecord(data []byte, stamp PhotoStamp) (Update, error) {
	return decodeRecord(data, stamp, "")
}

// DecodeRecordFor resolves a record fetched for a known spot. The update is
// keyed by id whatever identity the payload carries, since nested report
// payloads usually omit it.
func DecodeRecordFor(id string, data []byte, stamp PhotoStamp) (Update, error) {
	if id == "" {
		return Update{}, ErrMissingID
	}
	return decodeRecord(data, stamp, id)
}

func decodeRecord(data []byte, stamp PhotoStamp, id string) (Update, error) {
	var probe struct {
		ID   *string         `json:"_id"`
		Spot json.RawMessage `json:"spot"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if probe.ID == nil && len(probe.Spot) > 0 && string(probe.Spot) != "null" {
		var rec ReportRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return Update{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if id != "" {
			rec.Spot.ID = id
		}
		return FromReport(rec, stamp)
	}

	var rec MapviewRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if id != "" {
		rec.ID = id
	}
	return FromMapview(rec, stamp)
}

func fromSpotRecord(rec SpotRecord, stamp PhotoStamp) Update {
	u := Update{
		ID:   rec.ID,
		Name: rec.Name,
		Lat:  rec.Lat,
		Lon:  rec.Lon,
	}
	if rec.Cameras != nil {
		u.Photo.Set = true
		if len(rec.Cameras) > 0 {
			url := rec.Cameras[0].StillURLFull + string(stamp)
			u.Photo.URL = &url
		}
	}
	return u
}

func applyForecast(u *Update, conditions *Conditions, waveHeight *WaveHeight) {
	if conditions != nil {
		rating := conditions.Value
		u.Rating = &rating
	}
	if waveHeight != nil {
		wh := *waveHeight
		u.WaveHeight = &wh
	}
}
