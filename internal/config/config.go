package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	HTTPPort      string `envconfig:"HTTP_PORT" default:"3001"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"mongo"`

	MongoURI    string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDBName string `envconfig:"MONGO_DB_NAME" default:"storefront"`

	// empty disables the cart cache
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"orders"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"./internal/repository/migrations"`

	// empty disables order event publishing
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	OrdersTopic  string   `envconfig:"ORDERS_TOPIC" default:"orders"`

	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL     time.Duration `envconfig:"JWT_TTL" default:"72h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// none keeps spans in-process for log correlation only
	TracingExporter string `envconfig:"TRACING_EXPORTER" default:"none"`

	SeedProducts bool `envconfig:"SEED_PRODUCTS" default:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.StorageDriver = strings.ToLower(c.StorageDriver)
	if c.StorageDriver != StorageMongo && c.StorageDriver != StorageMemory {
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want %q or %q", c.StorageDriver, StorageMongo, StorageMemory)
	}
	c.TracingExporter = strings.ToLower(c.TracingExporter)
	if c.TracingExporter != "none" && c.TracingExporter != "stdout" {
		return fmt.Errorf("invalid TRACING_EXPORTER %q: want \"none\" or \"stdout\"", c.TracingExporter)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}
