// Package config loads the settings shared by every binary in this repo.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file named by CONFIG_FILE (with ${VAR} placeholders expanded),
// and a handful of well-known environment variables so containers can be
// configured without a file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Logging      LoggingConfig      `yaml:"logging"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Clients      ClientsConfig      `yaml:"clients"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Gateway      GatewayConfig      `yaml:"gateway"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	HTTPAddr string `yaml:"http_addr"`
	// GRPCAddr serves the gRPC health service. Empty disables it.
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// File enables rotated file output next to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "mysql".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	// Addr empty disables every Redis-backed feature that is optional.
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ClientsConfig struct {
	UserServiceURL    string        `yaml:"user_service_url"`
	ProductServiceURL string        `yaml:"product_service_url"`
	Timeout           time.Duration `yaml:"timeout"`
}

type OrchestratorConfig struct {
	// ReleaseStockOnAbort returns reserved stock when a later step fails.
	ReleaseStockOnAbort bool   `yaml:"release_stock_on_abort"`
	WorkflowLogPath     string `yaml:"workflow_log_path"`
}

type GatewayConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig maps a path prefix to one downstream service.
type RouteConfig struct {
	// Name is the short service name, e.g. "users".
	Name       string `yaml:"name"`
	PathPrefix string `yaml:"path_prefix"`
	URL        string `yaml:"url"`
	HealthAddr string `yaml:"health_addr"`
}

// defaultAddrs are the local HTTP and gRPC health ports of each binary.
var defaultAddrs = map[string][2]string{
	"api-gateway":     {":8080", ""},
	"user-service":    {":8081", ":9081"},
	"product-service": {":8082", ":9082"},
	"order-service":   {":8083", ":9083"},
}

// Default returns the configuration used when no file is present.
func Default(serviceName string) *Config {
	addrs, ok := defaultAddrs[serviceName]
	if !ok {
		addrs = [2]string{":8080", ""}
	}
	return &Config{
		Service: ServiceConfig{
			Name:            serviceName,
			HTTPAddr:        addrs[0],
			GRPCAddr:        addrs[1],
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Environment: "local",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/" + serviceName + ".db",
		},
		Redis: RedisConfig{
			IdempotencyTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "orders",
		},
		Clients: ClientsConfig{
			UserServiceURL:    "http://localhost:8081",
			ProductServiceURL: "http://localhost:8082",
			Timeout:           5 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			WorkflowLogPath: "./data/workflow.db",
		},
		Gateway: GatewayConfig{
			Routes: []RouteConfig{
				{Name: "users", PathPrefix: "/api/users", URL: "http://localhost:8081", HealthAddr: "localhost:9081"},
				{Name: "products", PathPrefix: "/api/products", URL: "http://localhost:8082", HealthAddr: "localhost:9082"},
				{Name: "orders", PathPrefix: "/api/orders", URL: "http://localhost:8083", HealthAddr: "localhost:9083"},
			},
		},
	}
}

// Load builds the configuration for serviceName. See the package doc for the
// precedence rules.
func Load(serviceName string) (*Config, error) {
	cfg := Default(serviceName)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Service.Name = getEnv("OTEL_SERVICE_NAME", c.Service.Name)
	if port := os.Getenv("PORT"); port != "" {
		c.Service.HTTPAddr = ":" + port
	}
	if port := os.Getenv("GRPC_PORT"); port != "" {
		c.Service.GRPCAddr = ":" + port
	}

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)

	c.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Telemetry.Environment = getEnv("OTEL_RESOURCE_ATTRIBUTES_ENV", c.Telemetry.Environment)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	c.Clients.UserServiceURL = getEnv("USER_SERVICE_URL", c.Clients.UserServiceURL)
	c.Clients.ProductServiceURL = getEnv("PRODUCT_SERVICE_URL", c.Clients.ProductServiceURL)

	var err error
	if c.Telemetry.Enabled, err = getEnvBool("OTEL_ENABLED", c.Telemetry.Enabled); err != nil {
		return err
	}
	if c.Orchestrator.ReleaseStockOnAbort, err = getEnvBool("RELEASE_STOCK_ON_ABORT", c.Orchestrator.ReleaseStockOnAbort); err != nil {
		return err
	}
	if c.Clients.Timeout, err = getEnvDuration("CLIENT_TIMEOUT", c.Clients.Timeout); err != nil {
		return err
	}

	for i := range c.Gateway.Routes {
		r := &c.Gateway.Routes[i]
		key := strings.ToUpper(r.Name)
		r.URL = getEnv(key+"_SERVICE_URL", r.URL)
		r.HealthAddr = getEnv(key+"_HEALTH_ADDR", r.HealthAddr)
	}
	return nil
}

// Validate rejects settings no binary can run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Clients.Timeout <= 0 {
		return fmt.Errorf("config: clients.timeout must be positive, got %s", c.Clients.Timeout)
	}
	if c.Service.HTTPAddr == "" {
		return fmt.Errorf("config: service.http_addr is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
