// Package mapview holds the server-side render target: the declarative description
// of the map (base layers, overlays, legend, viewport) that the browser page hands
// to Leaflet, plus the current contents of each overlay.
//
// A *Map is passed explicitly to whatever populates it. Overlays are replaced
// wholesale, so concurrent SetOverlay calls for different overlays commute.
package mapview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-quake-map/internal/magnitude"
)

const (
	OverlayEarthquakes = "Earthquakes"
	OverlayPlates      = "Tectonic Plates"
)

const (
	tileURL     = "https://api.mapbox.com/styles/v1/{id}/tiles/{z}/{x}/{y}?access_token={accessToken}"
	attribution = `Map data &copy; <a href="https://www.openstreetmap.org/">OpenStreetMap</a> contributors, <a href="https://creativecommons.org/licenses/by-sa/2.0/">CC-BY-SA</a>, Imagery © <a href="https://www.mapbox.com/">Mapbox</a>`
)

var ErrUnknownOverlay = errors.New("unknown overlay")

type BaseLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	StyleID     string `json:"id"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
	TileSize    int    `json:"tileSize"`
	ZoomOffset  int    `json:"zoomOffset"`
	AccessToken string `json:"accessToken"`
}

type OverlayInfo struct {
	Name      string         `json:"name"`
	Endpoint  string         `json:"endpoint"`
	Style     map[string]any `json:"style,omitempty"`
	Features  int            `json:"features"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	Visible   bool           `json:"visible"`
}

type Legend struct {
	Title       string                  `json:"title"`
	Position    string                  `json:"position"`
	LowestColor string                  `json:"lowest_color"`
	Entries     []magnitude.LegendEntry `json:"entries"`
}

// View is an immutable snapshot of the map description.
type View struct {
	Center           [2]float64    `json:"center"` // lat, lon
	Zoom             int           `json:"zoom"`
	BaseLayers       []BaseLayer   `json:"base_layers"`
	DefaultBase      string        `json:"default_base"`
	Overlays         []OverlayInfo `json:"overlays"`
	ControlCollapsed bool          `json:"control_collapsed"`
	Legend           Legend        `json:"legend"`
}

type Options struct {
	AccessToken string
	Center      [2]float64 // lat, lon
	Zoom        int
	Clock       clockwork.Clock
}

type overlay struct {
	info      OverlayInfo
	features  *geojson.FeatureCollection
	updatedAt time.Time
}

type Map struct {
	opts     Options
	clock    clockwork.Clock
	base     []BaseLayer
	mu       sync.RWMutex
	overlays map[string]*overlay
	order    []string
}

func New(opts Options) *Map {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	m := &Map{
		opts:     opts,
		clock:    clock,
		base:     baseLayers(opts.AccessToken),
		overlays: make(map[string]*overlay),
	}

	m.register(OverlayInfo{
		Name:     OverlayEarthquakes,
		Endpoint: "/api/layers/earthquakes",
		Visible:  true,
	})
	m.register(OverlayInfo{
		Name:     OverlayPlates,
		Endpoint: "/api/layers/plates",
		Style:    map[string]any{"fillOpacity": 0},
	})

	return m
}

func (m *Map) register(info OverlayInfo) {
	m.overlays[info.Name] = &overlay{
		info:     info,
		features: geojson.NewFeatureCollection(),
	}
	m.order = append(m.order, info.Name)
}

func baseLayers(token string) []BaseLayer {
	styles := []struct{ name, id string }{
		{"Street Map", "mapbox/streets-v11"},
		{"Satellite Map", "mapbox/satellite-v9"},
		{"Outdoors Map", "mapbox/outdoors-v11"},
		{"Navigation Map", "mapbox/navigation-day-v1"},
	}

	layers := make([]BaseLayer, 0, len(styles))
	for _, s := range styles {
		layers = append(layers, BaseLayer{
			Name:        s.name,
			URL:         tileURL,
			StyleID:     s.id,
			Attribution: attribution,
			MaxZoom:     18,
			TileSize:    512,
			ZoomOffset:  -1,
			AccessToken: token,
		})
	}
	return layers
}

// SetOverlay replaces the contents of the named overlay. A nil collection empties it.
func (m *Map) SetOverlay(name string, fc *geojson.FeatureCollection) error {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.overlays[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOverlay, name)
	}
	o.features = fc
	o.updatedAt = m.clock.Now()
	return nil
}

// Overlay returns the current contents of the named overlay. The collection is
// shared and must not be modified.
func (m *Map) Overlay(name string) (*geojson.FeatureCollection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.overlays[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOverlay, name)
	}
	return o.features, nil
}

func (m *Map) Describe() View {
	m.mu.RLock()
	overlays := make([]OverlayInfo, 0, len(m.order))
	for _, name := range m.order {
		o := m.overlays[name]
		info := o.info
		info.Features = len(o.features.Features)
		if !o.updatedAt.IsZero() {
			t := o.updatedAt
			info.UpdatedAt = &t
		}
		overlays = append(overlays, info)
	}
	m.mu.RUnlock()

	return View{
		Center:           m.opts.Center,
		Zoom:             m.opts.Zoom,
		BaseLayers:       append([]BaseLayer(nil), m.base...),
		DefaultBase:      m.base[0].Name,
		Overlays:         overlays,
		ControlCollapsed: false,
		Legend: Legend{
			Title:       "Earthquake Magnitude",
			Position:    "bottomright",
			LowestColor: magnitude.LowestColor,
			Entries:     magnitude.Legend(),
		},
	}
}
