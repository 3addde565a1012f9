package conf

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yamlViper(t *testing.T, content string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return v
}

func TestLoad_FromYAML(t *testing.T) {
	v := yamlViper(t, `
server:
  port: ":9090"
mongodb:
  uri: mongodb://db:27017
  database: certs
auth:
  jwt_secret: s3cret
  token_ttl: 2h
scanner:
  concurrency: 4
`)
	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, "certs", cfg.MongoDB.Database)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 4, cfg.Scanner.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Scanner.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "from-env")
	t.Setenv("MONGODB_DATABASE", "envdb")

	v := viper.New()
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "envdb", cfg.MongoDB.Database)
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoad_RequiresSecret(t *testing.T) {
	v := yamlViper(t, "server:\n  port: \":8080\"\n")
	_, err := load(v)
	assert.ErrorContains(t, err, "jwt_secret")
}
