package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runWith(t *testing.T, args ...string) Config {
	t.Helper()
	var cfg Config
	app := &cli.App{
		Name:  "atelier",
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = FromContext(c)
			return err
		},
	}
	require.NoError(t, app.Run(append([]string{"atelier"}, args...)))
	return cfg
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atelier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFromContext_Defaults(t *testing.T) {
	cfg := runWith(t)
	assert.Equal(t, ":9091", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromContext_FileThenFlags(t *testing.T) {
	path := writeConfig(t, `
addr: ":8080"
store: postgres
postgres_dsn: postgres://atelier@localhost/atelier
jwt_secret: from-file
cache_ttl: 5s
kafka:
  brokers: [k1:9092, k2:9092]
  topic: orders
`)
	cfg := runWith(t, "--config", path, "--addr", ":7070", "--kafka-brokers", "k3:9092, ,k4:9092")

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://atelier@localhost/atelier", cfg.PostgresDSN)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"k3:9092", "k4:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders", cfg.Kafka.Topic)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "addr: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Default()
	ok.JWTSecret = "s"
	require.NoError(t, ok.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "redis" }},
		{"mongo without uri", func(c *Config) { c.Store = StoreMongo }},
		{"postgres without dsn", func(c *Config) { c.Store = StorePostgres }},
		{"no secret", func(c *Config) { c.JWTSecret = "" }},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }},
		{"kafka without topic", func(c *Config) { c.Kafka = Kafka{Brokers: []string{"k:9092"}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ok
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
