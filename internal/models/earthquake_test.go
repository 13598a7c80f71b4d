package models

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestEarthquake_Point(t *testing.T) {
	e := &Earthquake{ID: "ci38457511", Latitude: 35.77, Longitude: -117.6}

	got := e.Point()
	if got != (orb.Point{-117.6, 35.77}) {
		t.Errorf("expected lon/lat order, got %v", got)
	}
	if got.Lon() != e.Longitude || got.Lat() != e.Latitude {
		t.Errorf("Lon/Lat mismatch: %v", got)
	}
}
