package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("HARVEST_ENV", "prod")
	t.Setenv("HARVEST_PORT", "9090")
	t.Setenv("HARVEST_DB_DRIVER", "postgres")
	t.Setenv("HARVEST_DATABASE_URL", "postgres://localhost/harvest")
	t.Setenv("HARVEST_JWT_SECRET", "s")
	t.Setenv("HARVEST_TOKEN_TTL", "2h")
	t.Setenv("HARVEST_LOG_JSON", "false")
	t.Setenv("HARVEST_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("HARVEST_MAPS_TIMEOUT", "not-a-duration")
	t.Setenv("HARVEST_CURRENCY", "USD")

	c := EnvDefaults()
	assert.Equal(t, "prod", c.Env)
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, 2*time.Hour, c.TokenTTL)
	assert.False(t, c.LogJSON)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, 5*time.Second, c.MapsTimeout, "unparseable values keep the default")
	assert.Equal(t, "USD", c.Currency)
	assert.Equal(t, ":9090", c.Addr())
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port":         func(c *Config) { c.Port = 0 },
		"driver":       func(c *Config) { c.DBDriver = "mysql" },
		"missing dsn":  func(c *Config) { c.DBDriver = "sqlite" },
		"prod secret":  func(c *Config) { c.Env = "prod" },
		"ttl":          func(c *Config) { c.TokenTTL = 0 },
		"maps timeout": func(c *Config) { c.MapsTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
