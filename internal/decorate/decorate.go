// Package decorate turns parsed earthquakes into styled, labelled map features.
package decorate

import (
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-quake-map/internal/magnitude"
	"github.com/mr1hm/go-quake-map/internal/models"
	"github.com/mr1hm/go-quake-map/internal/observability"
)

const (
	FillOpacity = 0.8
	StrokeWidth = 0
)

// Style mirrors Leaflet's circleMarker path options.
type Style struct {
	Radius      float64 `json:"radius"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Weight      float64 `json:"weight"`
	Stroke      bool    `json:"stroke"`
}

type Decorated struct {
	Earthquake models.Earthquake
	Label      string
	Tier       int
	Style      Style
}

type Decorator struct {
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// New returns a Decorator. A nil clock uses real time; metrics may be nil.
func New(clock clockwork.Clock, metrics *observability.Metrics) *Decorator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Decorator{
		clock:   clock,
		metrics: metrics,
	}
}

func (d *Decorator) Decorate(eq models.Earthquake) (Decorated, error) {
	class, err := magnitude.Classify(eq.Magnitude)
	if err != nil {
		return Decorated{}, fmt.Errorf("earthquake %s: %w", eq.ID, err)
	}

	if d.metrics != nil {
		d.metrics.Classified.WithLabelValues(class.Color).Inc()
	}

	return Decorated{
		Earthquake: eq,
		Label:      d.Label(eq),
		Tier:       class.Bucket.Tier,
		Style: Style{
			Radius:      class.Radius,
			FillColor:   class.Color,
			FillOpacity: FillOpacity,
			Weight:      StrokeWidth,
			Stroke:      StrokeWidth > 0,
		},
	}, nil
}

// Label is the popup HTML: magnitude, place, then the UTC time and its age.
// The age is measured when the label is built, so a label kept for a refresh
// interval can read up to one interval young.
// The feature's "time" property carries the exact instant.
func (d *Decorator) Label(eq models.Earthquake) string {
	when := eq.Time.UTC()
	return fmt.Sprintf("<h3>%s Magnitude Earthquake at %s</h3><hr><p>%s (%s)</p>",
		strconv.FormatFloat(eq.Magnitude, 'f', -1, 64),
		html.EscapeString(eq.Place),
		when.Format(time.RFC1123),
		humanize.RelTime(when, d.clock.Now(), "ago", "from now"),
	)
}

// Layer builds the styled point layer. Earthquakes that cannot be classified are dropped.
func (d *Decorator) Layer(quakes []models.Earthquake) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, eq := range quakes {
		dq, err := d.Decorate(eq)
		if err != nil {
			slog.Warn("skipping earthquake", "id", eq.ID, "error", err)
			continue
		}
		fc.Append(dq.Feature())
	}
	return fc
}

func (dq Decorated) Feature() *geojson.Feature {
	eq := dq.Earthquake
	f := geojson.NewFeature(eq.Point())
	f.ID = eq.ID
	f.Properties = geojson.Properties{
		"mag":   eq.Magnitude,
		"place": eq.Place,
		"time":  eq.Time.UnixMilli(),
		"url":   eq.URL,
		"tier":  dq.Tier,
		"popup": dq.Label,
		"style": dq.Style,
	}
	return f
}
