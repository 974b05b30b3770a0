// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"storefront.db"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	MongoURI       string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName    string `env:"MONGO_DB_NAME" envDefault:"storefront"`

	CacheEnabled      bool `env:"CACHE_ENABLED" envDefault:"false"`
	CrossInstanceSync bool `env:"CROSS_INSTANCE_SYNC" envDefault:"false"`

	CatalogBaseURL string        `env:"CATALOG_BASE_URL" envDefault:"http://localhost:8081/api"`
	CatalogTimeout time.Duration `env:"CATALOG_TIMEOUT" envDefault:"5s"`

	JWTSecret string `env:"JWT_SECRET,required"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"order-completed"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"storefront-cart-reset"`

	TaxRate               float64 `env:"TAX_RATE" envDefault:"0.08"`
	FreeShippingThreshold float64 `env:"FREE_SHIPPING_THRESHOLD" envDefault:"50"`
	ShippingFee           float64 `env:"SHIPPING_FEE" envDefault:"5.99"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env files (if any) into the environment and parses it. Values
// already present in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.TaxRate < 0 || c.ShippingFee < 0 || c.FreeShippingThreshold < 0 {
		return errors.New("pricing settings must not be negative")
	}
	return nil
}

// NeedsRedis reports whether any enabled feature talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.StorageBackend == BackendRedis || c.CacheEnabled || c.CrossInstanceSync
}
