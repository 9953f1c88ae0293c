package config

import "time"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:   "0.0.0.0",
			Port:   3000,
			Banner: "Coffee catalog API",
		},
		Storage: StorageConfig{
			Backend:  BackendAuto,
			Seed:     true,
			SeedPath: "./data/coffees.json",
			Timeout:  Duration{10 * time.Second},
			File: FileConfig{
				Path: "./data/coffees.json",
			},
			Mongo: MongoConfig{
				Database:   "coffee",
				Collection: "coffees",
			},
		},
		Images: ImagesConfig{
			Dir: "./images",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
