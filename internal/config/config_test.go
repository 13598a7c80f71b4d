package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/2.5_month.geojson", cfg.Feeds.EarthquakesURL)
	assert.Equal(t, "https://raw.githubusercontent.com/fraxen/tectonicplates/master/GeoJSON/PB2002_boundaries.json", cfg.Feeds.PlatesURL)
	assert.Equal(t, 5*time.Minute, cfg.Feeds.RefreshInterval)
	assert.Equal(t, 15*time.Second, cfg.Feeds.FetchTimeout)
	assert.Equal(t, 30.0, cfg.Map.CenterLat)
	assert.Equal(t, -104.0059, cfg.Map.CenterLon)
	assert.Equal(t, 4, cfg.Map.Zoom)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.abc")
	t.Setenv("REFRESH_INTERVAL", "10m")
	t.Setenv("MAP_ZOOM", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pk.abc", cfg.Map.AccessToken)
	assert.Equal(t, 10*time.Minute, cfg.Feeds.RefreshInterval)
	assert.Equal(t, 3, cfg.Map.Zoom)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_UnparsableValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("MAP_CENTER_LAT", "north")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30.0, cfg.Map.CenterLat)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"port":     {"SERVER_PORT", "70000"},
		"level":    {"LOG_LEVEL", "verbose"},
		"format":   {"LOG_FORMAT", "xml"},
		"interval": {"REFRESH_INTERVAL", "30s"},
		"timeout":  {"FETCH_TIMEOUT", "1h"},
		"zoom":     {"MAP_ZOOM", "25"},
		"lat":      {"MAP_CENTER_LAT", "91"},
		"workers":  {"WORKER_COUNT", "0"},
		"rate":     {"RATE_LIMIT_RPS", "0"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
