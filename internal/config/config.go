package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env         string
	Port        int
	DBDriver    string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration
	LogJSON     bool
	CORSOrigins []string
	Metrics     bool

	MapsAPIKey        string
	MapsGeocodeURL    string
	MapsDistanceURL   string
	MapsDirectionsURL string
	MapsTimeout       time.Duration

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayURL       string
	GatewayTimeout    time.Duration
	Currency          string
}

func Default() Config {
	return Config{
		Env:               "dev",
		Port:              8080,
		DBDriver:          "memory",
		TokenTTL:          10 * time.Hour,
		LogJSON:           true,
		CORSOrigins:       []string{"*"},
		Metrics:           true,
		MapsGeocodeURL:    "https://maps.googleapis.com/maps/api/geocode/json",
		MapsDistanceURL:   "https://maps.googleapis.com/maps/api/distancematrix/json",
		MapsDirectionsURL: "https://maps.googleapis.com/maps/api/directions/json",
		MapsTimeout:       5 * time.Second,
		RazorpayURL:       "https://api.razorpay.com/v1",
		GatewayTimeout:    10 * time.Second,
		Currency:          "INR",
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		switch os.Getenv(key) {
		case "1", "true", "TRUE":
			*dst = true
		case "0", "false", "FALSE":
			*dst = false
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("HARVEST_ENV", &c.Env)
	if v := os.Getenv("HARVEST_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	str("HARVEST_DB_DRIVER", &c.DBDriver)
	str("HARVEST_DATABASE_URL", &c.DatabaseURL)
	str("HARVEST_JWT_SECRET", &c.JWTSecret)
	dur("HARVEST_TOKEN_TTL", &c.TokenTTL)
	boolean("HARVEST_LOG_JSON", &c.LogJSON)
	if v := os.Getenv("HARVEST_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = SplitList(v)
	}
	boolean("HARVEST_METRICS", &c.Metrics)

	str("HARVEST_MAPS_API_KEY", &c.MapsAPIKey)
	str("HARVEST_MAPS_GEOCODE_URL", &c.MapsGeocodeURL)
	str("HARVEST_MAPS_DISTANCE_URL", &c.MapsDistanceURL)
	str("HARVEST_MAPS_DIRECTIONS_URL", &c.MapsDirectionsURL)
	dur("HARVEST_MAPS_TIMEOUT", &c.MapsTimeout)

	str("HARVEST_RAZORPAY_KEY_ID", &c.RazorpayKeyID)
	str("HARVEST_RAZORPAY_KEY_SECRET", &c.RazorpayKeySecret)
	str("HARVEST_RAZORPAY_URL", &c.RazorpayURL)
	dur("HARVEST_GATEWAY_TIMEOUT", &c.GatewayTimeout)
	str("HARVEST_CURRENCY", &c.Currency)
	return c
}

// Validate reports the first setting that would prevent startup.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.DBDriver {
	case "memory":
	case "postgres", "sqlite":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("database url required for driver %s", c.DBDriver)
		}
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	if c.JWTSecret == "" && !c.IsDev() {
		return errors.New("jwt secret required outside dev")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.MapsTimeout <= 0 || c.GatewayTimeout <= 0 {
		return errors.New("provider timeouts must be positive")
	}
	return nil
}

func (c Config) IsDev() bool { return c.Env == "dev" }

func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
