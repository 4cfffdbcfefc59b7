// Package config loads server settings from .env files and the environment.
package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime settings
type Config struct {
	DatabaseURL       string
	OpenWeatherAPIKey string
	Port              string
	Env               string
	LogLevel          string
	LogFile           string
	MigrateOnStart    bool
	SiteLat           float64
	SiteLon           float64
	Analytics         Analytics
}

// Analytics holds tunables passed to the analytics engines
type Analytics struct {
	DecayHalfLifeDays   float64
	TrendPeriods        int
	MaxRecommendations  int
	IsolationTrees      int
	IsolationSampleSize int
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	return FromViper(viper.New())
}

// FromViper fills a Config from v after registering defaults and env binding
func FromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:       v.GetString("DATABASE_URL"),
		OpenWeatherAPIKey: v.GetString("OPENWEATHER_API_KEY"),
		Port:              v.GetString("PORT"),
		Env:               v.GetString("GO_ENV"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFile:           v.GetString("LOG_FILE"),
		MigrateOnStart:    v.GetBool("MIGRATE_ON_START"),
		SiteLat:           v.GetFloat64("SITE_LAT"),
		SiteLon:           v.GetFloat64("SITE_LON"),
		Analytics: Analytics{
			DecayHalfLifeDays:   v.GetFloat64("ANALYTICS_DECAY_HALF_LIFE_DAYS"),
			TrendPeriods:        v.GetInt("ANALYTICS_TREND_PERIODS"),
			MaxRecommendations:  v.GetInt("ANALYTICS_MAX_RECOMMENDATIONS"),
			IsolationTrees:      v.GetInt("ANALYTICS_ISOLATION_TREES"),
			IsolationSampleSize: v.GetInt("ANALYTICS_ISOLATION_SAMPLE_SIZE"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("OPENWEATHER_API_KEY", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "logs/fleet.log")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("SITE_LAT", 43.2389)
	v.SetDefault("SITE_LON", 76.8897)
	v.SetDefault("ANALYTICS_DECAY_HALF_LIFE_DAYS", 30)
	v.SetDefault("ANALYTICS_TREND_PERIODS", 12)
	v.SetDefault("ANALYTICS_MAX_RECOMMENDATIONS", 5)
	v.SetDefault("ANALYTICS_ISOLATION_TREES", 100)
	v.SetDefault("ANALYTICS_ISOLATION_SAMPLE_SIZE", 256)
}

// Validate rejects settings the engines cannot work with
func (c *Config) Validate() error {
	a := c.Analytics
	switch {
	case a.DecayHalfLifeDays <= 0:
		return fmt.Errorf("config: ANALYTICS_DECAY_HALF_LIFE_DAYS must be positive, got %v", a.DecayHalfLifeDays)
	case a.TrendPeriods <= 0:
		return fmt.Errorf("config: ANALYTICS_TREND_PERIODS must be positive, got %d", a.TrendPeriods)
	case a.MaxRecommendations <= 0:
		return fmt.Errorf("config: ANALYTICS_MAX_RECOMMENDATIONS must be positive, got %d", a.MaxRecommendations)
	case a.IsolationTrees <= 0 || a.IsolationSampleSize <= 0:
		return fmt.Errorf("config: isolation forest trees and sample size must be positive")
	}
	return nil
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
