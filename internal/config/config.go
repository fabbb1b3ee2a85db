// Package config собирает настройки сервиса из YAML-файла, флагов и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"

	EnvProduction = "production"
)

type Kafka struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

type Config struct {
	Addr        string        `yaml:"addr"`
	Env         string        `yaml:"env"`
	Store       string        `yaml:"store"`
	MongoURI    string        `yaml:"mongo_uri"`
	MongoDB     string        `yaml:"mongo_db"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	JWTSecret   string        `yaml:"jwt_secret"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Kafka       Kafka         `yaml:"kafka"`
}

func Default() Config {
	return Config{
		Addr:     ":9091",
		Env:      "development",
		Store:    StoreMemory,
		MongoDB:  "atelier",
		CacheTTL: 30 * time.Second,
		Kafka:    Kafka{Topic: "order-events"},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.Store {
	case StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo-uri is required for the mongo store"))
		}
		if c.MongoDB == "" {
			errs = append(errs, errors.New("mongo-db is required for the mongo store"))
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres-dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt-secret is required"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache-ttl must not be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka-topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func (c Config) Production() bool { return c.Env == EnvProduction }

// Flags returns the command-line flags of the serve and token commands. Every
// flag can also come from its environment variable.
func Flags() []cli.Flag {
	d := Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to a YAML config file", EnvVars: []string{"ATELIER_CONFIG"}},
		&cli.StringFlag{Name: "addr", Value: d.Addr, Usage: "HTTP listen address", EnvVars: []string{"ATELIER_ADDR"}},
		&cli.StringFlag{Name: "env", Value: d.Env, Usage: "development or production", EnvVars: []string{"ATELIER_ENV", "ENV"}},
		&cli.StringFlag{Name: "store", Value: d.Store, Usage: "memory, mongo or postgres", EnvVars: []string{"ATELIER_STORE"}},
		&cli.StringFlag{Name: "mongo-uri", Usage: "MongoDB connection string (replica set)", EnvVars: []string{"ATELIER_MONGO_URI"}},
		&cli.StringFlag{Name: "mongo-db", Value: d.MongoDB, Usage: "MongoDB database", EnvVars: []string{"ATELIER_MONGO_DB"}},
		&cli.StringFlag{Name: "postgres-dsn", Usage: "PostgreSQL connection string", EnvVars: []string{"ATELIER_POSTGRES_DSN", "DATABASE_URL"}},
		&cli.StringFlag{Name: "jwt-secret", Usage: "HS256 signing secret", EnvVars: []string{"ATELIER_JWT_SECRET", "JWT_SECRET"}},
		&cli.DurationFlag{Name: "cache-ttl", Value: d.CacheTTL, Usage: "product listing cache TTL, 0 disables", EnvVars: []string{"ATELIER_CACHE_TTL"}},
		&cli.StringFlag{Name: "kafka-brokers", Usage: "comma-separated Kafka seed brokers; empty logs events instead", EnvVars: []string{"ATELIER_KAFKA_BROKERS", "KAFKA_BROKERS"}},
		&cli.StringFlag{Name: "kafka-topic", Value: d.Kafka.Topic, Usage: "Kafka topic for order events", EnvVars: []string{"ATELIER_KAFKA_TOPIC"}},
		&cli.StringFlag{Name: "kafka-username", EnvVars: []string{"KAFKA_USERNAME"}},
		&cli.StringFlag{Name: "kafka-password", EnvVars: []string{"KAFKA_PASSWORD"}},
	}
}

// FromContext builds the configuration of a command. Values from the --config
// file are kept unless the flag or its environment variable is set explicitly.
func FromContext(c *cli.Context) (Config, error) {
	cfg := Default()
	path := c.String("config")
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	set := func(name string) bool { return path == "" || c.IsSet(name) }

	if set("addr") {
		cfg.Addr = c.String("addr")
	}
	if set("env") {
		cfg.Env = c.String("env")
	}
	if set("store") {
		cfg.Store = strings.ToLower(c.String("store"))
	}
	if set("mongo-uri") {
		cfg.MongoURI = c.String("mongo-uri")
	}
	if set("mongo-db") {
		cfg.MongoDB = c.String("mongo-db")
	}
	if set("postgres-dsn") {
		cfg.PostgresDSN = c.String("postgres-dsn")
	}
	if set("jwt-secret") {
		cfg.JWTSecret = c.String("jwt-secret")
	}
	if set("cache-ttl") {
		cfg.CacheTTL = c.Duration("cache-ttl")
	}
	if set("kafka-brokers") {
		cfg.Kafka.Brokers = splitList(c.String("kafka-brokers"))
	}
	if set("kafka-topic") {
		cfg.Kafka.Topic = c.String("kafka-topic")
	}
	if set("kafka-username") {
		cfg.Kafka.Username = c.String("kafka-username")
	}
	if set("kafka-password") {
		cfg.Kafka.Password = c.String("kafka-password")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
