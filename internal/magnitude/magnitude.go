// Package magnitude maps earthquake magnitudes to severity tiers, display colors
// and marker radii.
//
// Colors are the 11-class RdYlGn ColorBrewer ramp, reversed so that stronger
// earthquakes are drawn in red.
package magnitude

import (
	"errors"
	"math"
)

// RadiusBase is raised to the magnitude to obtain a marker radius in pixels.
const RadiusBase = 1.8

// LowestColor is used for magnitudes that exceed no threshold.
const LowestColor = "#006837"

var (
	ErrNonFinite = errors.New("magnitude must be a finite number")
	// ErrRadiusOverflow is returned for magnitudes so large that RadiusBase^mag
	// is not representable as a float64 (about 1207.6 and above).
	ErrRadiusOverflow = errors.New("magnitude too large for a marker radius")
)

// Bucket is one severity tier. Floor is an exclusive lower bound: a magnitude
// belongs to the tier when it is strictly greater than Floor. The lowest tier
// has no floor.
type Bucket struct {
	Tier     int
	Floor    float64
	HasFloor bool
	Color    string
}

// Class is the result of classifying a single magnitude.
type Class struct {
	Bucket Bucket
	Color  string
	Radius float64
}

type LegendEntry struct {
	LowerBound float64 `json:"lower_bound"`
	Color      string  `json:"color"`
}

// thresholds is ordered ascending; thresholds[i] opens tier i+1.
var thresholds = []struct {
	floor float64
	color string
}{
	{3.0, "#1a9850"}, // felt, minor damage
	{3.5, "#66bd63"},
	{4.0, "#a6d96a"},
	{4.5, "#d9ef8b"},
	{5.0, "#ffffbf"},
	{5.5, "#fee08b"}, // slight damage to buildings
	{6.0, "#fdae61"},
	{6.5, "#f46d43"},
	{7.0, "#d73027"}, // major, serious damage
	{7.5, "#a50026"},
}

// Classify returns the tier, color and radius for mag. Ties at a threshold
// fall to the lower tier. Radius is not clamped, but a radius that overflows
// float64 is reported as ErrRadiusOverflow.
func Classify(mag float64) (Class, error) {
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return Class{}, ErrNonFinite
	}

	radius := RadiusFor(mag)
	if math.IsInf(radius, 0) {
		return Class{}, ErrRadiusOverflow
	}

	b := bucketFor(mag)
	return Class{
		Bucket: b,
		Color:  b.Color,
		Radius: radius,
	}, nil
}

// ColorFor is Classify without the radius. Non-finite input gets LowestColor.
func ColorFor(mag float64) string {
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return LowestColor
	}
	return bucketFor(mag).Color
}

// RadiusFor is RadiusBase^mag. It is +Inf for very large magnitudes.
func RadiusFor(mag float64) float64 {
	return math.Pow(RadiusBase, mag)
}

func bucketFor(mag float64) Bucket {
	for i := len(thresholds) - 1; i >= 0; i-- {
		if mag > thresholds[i].floor {
			return Bucket{
				Tier:     i + 1,
				Floor:    thresholds[i].floor,
				HasFloor: true,
				Color:    thresholds[i].color,
			}
		}
	}
	return Bucket{Tier: 0, Color: LowestColor}
}

// Buckets lists every tier from lowest to highest.
func Buckets() []Bucket {
	out := make([]Bucket, 0, len(thresholds)+1)
	out = append(out, Bucket{Tier: 0, Color: LowestColor})
	for i, t := range thresholds {
		out = append(out, Bucket{
			Tier:     i + 1,
			Floor:    t.floor,
			HasFloor: true,
			Color:    t.color,
		})
	}
	return out
}

// Legend returns one entry per threshold, ascending. The lowest tier has no
// lower bound and is not part of the list.
func Legend() []LegendEntry {
	out := make([]LegendEntry, len(thresholds))
	for i, t := range thresholds {
		out[i] = LegendEntry{LowerBound: t.floor, Color: t.color}
	}
	return out
}
