package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration of appconfig binaries
type Config struct {
	// Runtime mode (development, production); selects the logger
	Mode     string `yaml:"mode" validate:"required,oneof=development staging production test"`
	LogLevel string `yaml:"log_level" validate:"required,oneof=debug info warn error"`

	// Lookup target
	Environment string `yaml:"environment" validate:"required"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region" validate:"required"`
	TableName        string `yaml:"table_name" validate:"required"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" validate:"omitempty,url"`
	ConsistentRead   bool   `yaml:"consistent_read"`

	// Observability
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint" validate:"required_if=EnableTracing true"`

	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker"`
}

// CircuitBreaker configures the optional breaker around the store
type CircuitBreaker struct {
	Enabled      bool          `yaml:"enabled"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gt=0,lte=1"`
	MinRequests  uint32        `yaml:"min_requests" validate:"gte=1"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
}

// DefaultConfig returns the configuration used before any file or variable is applied
func DefaultConfig() *Config {
	return &Config{
		Mode:        "development",
		LogLevel:    "info",
		Environment: "default",
		AWSRegion:   "us-east-1",
		TableName:   "app_config",
		CircuitBreaker: CircuitBreaker{
			FailureRatio: 0.5,
			MinRequests:  5,
			Timeout:      30 * time.Second,
		},
	}
}

// LoadConfig loads configuration. Lowest to highest priority:
//  1. DefaultConfig
//  2. YAML file named by APPCONFIG_FILE
//  3. Environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("APPCONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnvironmentVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironmentVariables() {
	c.Mode = getEnv("ENVIRONMENT", c.Mode)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.Environment = getEnv("APPCONFIG_ENVIRONMENT", c.Environment)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.TableName = getEnv("APPCONFIG_TABLE", c.TableName)
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.ConsistentRead = getEnvBool("APPCONFIG_CONSISTENT_READ", c.ConsistentRead)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.CircuitBreaker.Enabled = getEnvBool("ENABLE_CIRCUIT_BREAKER", c.CircuitBreaker.Enabled)
	c.CircuitBreaker.FailureRatio = getEnvFloat("CIRCUIT_BREAKER_FAILURE_RATIO", c.CircuitBreaker.FailureRatio)
	c.CircuitBreaker.MinRequests = getEnvUint32("CIRCUIT_BREAKER_MIN_REQUESTS", c.CircuitBreaker.MinRequests)
	c.CircuitBreaker.Timeout = getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", c.CircuitBreaker.Timeout)
}

var validate = validator.New()

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Mode == "production"
}

func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		switch e.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s=%s)", field, e.Tag(), e.Param()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvUint32 gets an unsigned environment variable with a default value.
// Negative or out-of-range values are ignored.
func getEnvUint32(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
