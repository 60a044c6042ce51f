package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 90*24*time.Hour, cfg.JWT.TTL())
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL())
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetCleanupInterval())
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL())
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.Equal(t, 12*60*60, cfg.CORS.MaxAge)
	assert.Equal(t, 100, cfg.RateLimit.GeneralBurst)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("JWT_EXPIRY_HOURS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWT:      JWTConfig{Secret: "s"},
			Database: DatabaseConfig{Driver: DriverPostgres, Host: "db", DBName: "tours"},
			Mail:     MailConfig{Provider: "log"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }},
		{"missing postgres host", func(c *Config) { c.Database.Host = "" }},
		{"sqlite without path", func(c *Config) { c.Database = DatabaseConfig{Driver: DriverSQLite} }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"sendgrid without key", func(c *Config) { c.Mail.Provider = "sendgrid" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", db.DSN())
}
