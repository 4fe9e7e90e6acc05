package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Port string `env:"PORT" envDefault:"5250"`

	// MLS replication feed
	Replication struct {
		// Base URL of the OData replication endpoint
		BaseURL string `env:"REPLICATION_BASE"`

		// Bearer token for the replication feed
		AccessToken string `env:"SPARK_ACCESS_TOKEN"`
	}

	// Google Maps (geocoding, static maps, street view)
	GoogleMapsKey string `env:"GOOGLE_MAPS_KEY"`

	// Timeout for outbound HTTP calls (in seconds)
	HTTPTimeout int `env:"HTTP_TIMEOUT" envDefault:"10"`

	// Directory for the geocode result cache (defaults to a temp dir when empty)
	GeocodeCacheDir string `env:"GEOCODE_CACHE_DIR"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
