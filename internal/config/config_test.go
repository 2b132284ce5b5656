package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                     "8000",
		Env:                      "development",
		DBDriver:                 "postgres",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		DBSchemaMode:             "auto",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		AccessTokenExpireMinutes: 30,
		AllowedOrigins:           "*",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development config", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Zero token lifetime", func(c *Config) { c.AccessTokenExpireMinutes = 0 }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Sqlite without path", func(c *Config) { c.DBDriver = "sqlite"; c.DBPath = "" }, true},
		{"Sqlite with path", func(c *Config) { c.DBDriver = "sqlite"; c.DBPath = "x.db" }, false},
		{"SQL schema on sqlite", func(c *Config) { c.DBDriver = "sqlite"; c.DBPath = "x.db"; c.DBSchemaMode = "sql" }, true},
		{"SQL schema on postgres", func(c *Config) { c.DBSchemaMode = "sql" }, false},
		{"Unknown exporter", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "jaeger" }, true},
		{"Bad sample ratio", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "otlp"; c.TracingSampleRatio = 2 }, true},
		{"Production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"Production short secret", func(c *Config) { c.Env = "prod"; c.JWTSecret = "short" }, true},
		{"Production weak db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"Production ssl disabled", func(c *Config) { c.Env = "production"; c.DBSSLMode = "disable" }, true},
		{"Production hardened", func(c *Config) { c.Env = "production"; c.CookieSecure = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("DB_PATH", "test.db")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "test.db", c.DBPath)
	assert.Equal(t, 5, c.AccessTokenExpireMinutes)
	assert.Equal(t, "8000", c.Port)
	assert.Equal(t, "auto", c.DBSchemaMode)
}

func TestConfig_Origins(t *testing.T) {
	c := &Config{AllowedOrigins: "http://a.io, http://b.io,,"}
	assert.Equal(t, []string{"http://a.io", "http://b.io"}, c.Origins())
}
