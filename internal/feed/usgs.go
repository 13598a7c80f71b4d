package feed

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-quake-map/internal/models"
)

// ParseEarthquakes converts a USGS summary feed into earthquakes. Features missing
// a magnitude, place, time or point geometry are skipped and reported as errors
// wrapping ErrMalformedFeature.
func ParseEarthquakes(fc *geojson.FeatureCollection) ([]models.Earthquake, []error) {
	if fc == nil {
		return nil, nil
	}

	quakes := make([]models.Earthquake, 0, len(fc.Features))
	var errs []error
	for i, f := range fc.Features {
		eq, err := parseEarthquake(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("feature %d (%v): %w", i, featureID(f), err))
			continue
		}
		quakes = append(quakes, eq)
	}
	return quakes, errs
}

func parseEarthquake(f *geojson.Feature) (models.Earthquake, error) {
	if f == nil {
		return models.Earthquake{}, fmt.Errorf("%w: null feature", ErrMalformedFeature)
	}

	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return models.Earthquake{}, fmt.Errorf("%w: geometry is %T, want point", ErrMalformedFeature, f.Geometry)
	}

	mag, ok := f.Properties["mag"].(float64)
	if !ok || math.IsNaN(mag) || math.IsInf(mag, 0) {
		return models.Earthquake{}, fmt.Errorf("%w: missing mag", ErrMalformedFeature)
	}

	place, ok := f.Properties["place"].(string)
	if !ok {
		return models.Earthquake{}, fmt.Errorf("%w: missing place", ErrMalformedFeature)
	}

	// epoch millis arrive as a JSON number
	ms, ok := f.Properties["time"].(float64)
	if !ok {
		return models.Earthquake{}, fmt.Errorf("%w: missing time", ErrMalformedFeature)
	}

	return models.Earthquake{
		ID:        featureID(f),
		Magnitude: mag,
		Place:     place,
		Time:      time.UnixMilli(int64(ms)),
		Longitude: pt.Lon(),
		Latitude:  pt.Lat(),
		URL:       f.Properties.MustString("url", ""),
	}, nil
}

func featureID(f *geojson.Feature) string {
	if f == nil || f.ID == nil {
		return ""
	}
	return fmt.Sprint(f.ID)
}
