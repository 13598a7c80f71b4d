package models

import (
	"time"

	"github.com/paulmach/orb"
)

type Earthquake struct {
	ID        string    // USGS feature ID (e.g., "us7000abcd")
	Magnitude float64   // as reported; the feed mixes magnitude types
	Place     string    // e.g., "10 km SSW of Idyllwild, CA"
	Time      time.Time // when the event occurred
	Longitude float64
	Latitude  float64
	URL       string    // USGS event page
	CreatedAt time.Time // when we archived it
}

// Point is the epicenter in GeoJSON axis order (longitude, latitude).
func (e *Earthquake) Point() orb.Point {
	return orb.Point{e.Longitude, e.Latitude}
}
