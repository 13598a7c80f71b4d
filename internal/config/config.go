package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Worker  WorkerConfig
	Feeds   FeedsConfig
	Map     MapConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	RateLimitRPS  int
	ShutdownGrace time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type FeedsConfig struct {
	EarthquakesURL  string
	PlatesURL       string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	CacheBytes      int64
}

type MapConfig struct {
	AccessToken string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "localhost"),
			Port:          getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:  getEnvInt("RATE_LIMIT_RPS", 20),
			ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 100),
		},
		Feeds: FeedsConfig{
			EarthquakesURL:  getEnv("EARTHQUAKE_FEED_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/2.5_month.geojson"),
			PlatesURL:       getEnv("PLATES_FEED_URL", "https://raw.githubusercontent.com/fraxen/tectonicplates/master/GeoJSON/PB2002_boundaries.json"),
			RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
			FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
			CacheBytes:      int64(getEnvInt("FEED_CACHE_BYTES", 64<<20)),
		},
		Map: MapConfig{
			AccessToken: getEnv("MAPBOX_ACCESS_TOKEN", ""),
			CenterLat:   getEnvFloat("MAP_CENTER_LAT", 30),
			CenterLon:   getEnvFloat("MAP_CENTER_LON", -104.0059),
			Zoom:        getEnvInt("MAP_ZOOM", 4),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/quake-map.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("invalid rate limit: %d", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	if c.Feeds.EarthquakesURL == "" || c.Feeds.PlatesURL == "" {
		return fmt.Errorf("feed URLs must be set")
	}
	if c.Feeds.RefreshInterval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1 minute")
	}
	if c.Feeds.FetchTimeout <= 0 || c.Feeds.FetchTimeout > c.Feeds.RefreshInterval {
		return fmt.Errorf("fetch timeout must be positive and no longer than the refresh interval")
	}
	if c.Feeds.CacheBytes < 0 {
		return fmt.Errorf("feed cache size must not be negative")
	}

	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 || c.Map.CenterLon < -180 || c.Map.CenterLon > 180 {
		return fmt.Errorf("invalid map center: %v,%v", c.Map.CenterLat, c.Map.CenterLon)
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 18 {
		return fmt.Errorf("invalid map zoom: %d", c.Map.Zoom)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
