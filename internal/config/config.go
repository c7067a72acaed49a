// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Auth modes select the identity resolver wired into the server.
const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string  `mapstructure:"PORT"`
	Env            string  `mapstructure:"APP_ENV"`
	DBHost         string  `mapstructure:"DB_HOST"`
	DBPort         string  `mapstructure:"DB_PORT"`
	DBUser         string  `mapstructure:"DB_USER"`
	DBPassword     string  `mapstructure:"DB_PASSWORD"`
	DBName         string  `mapstructure:"DB_NAME"`
	DBSSLMode      string  `mapstructure:"DB_SSLMODE"`
	RedisURL       string  `mapstructure:"REDIS_URL"`
	AuthMode       string  `mapstructure:"AUTH_MODE"`
	IdentityHeader string  `mapstructure:"IDENTITY_HEADER"`
	JWTSecret      string  `mapstructure:"JWT_SECRET"`
	ModelURL       string  `mapstructure:"MODEL_URL"`
	ModelTimeoutMS int     `mapstructure:"MODEL_TIMEOUT_MS"`
	UploadDir      string  `mapstructure:"UPLOAD_DIR"`
	UploadMaxMB    int     `mapstructure:"UPLOAD_MAX_MB"`
	FeatureFlags   string  `mapstructure:"FEATURE_FLAGS"`
	FlagsFile      string  `mapstructure:"FLAGS_FILE"`
	TracingEnabled bool    `mapstructure:"TRACING_ENABLED"`
	TraceExporter  string  `mapstructure:"TRACE_EXPORTER"`
	OTLPEndpoint   string  `mapstructure:"OTLP_ENDPOINT"`
	TraceSampler   float64 `mapstructure:"TRACE_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional; env vars and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			log.Printf("No profile-specific config.%s.yml found, using base config and environment", env)
		}
	}

	viper.SetDefault("PORT", "8480")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "commune")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("AUTH_MODE", AuthModeHeader)
	viper.SetDefault("IDENTITY_HEADER", "X-User-Id")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("MODEL_URL", "http://localhost:8600")
	viper.SetDefault("MODEL_TIMEOUT_MS", 2000)
	viper.SetDefault("UPLOAD_DIR", "/tmp/commune/uploads")
	viper.SetDefault("UPLOAD_MAX_MB", 10)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("FLAGS_FILE", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACE_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACE_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AuthMode != AuthModeHeader && c.AuthMode != AuthModeJWT {
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeHeader, AuthModeJWT)
	}
	if c.IdentityHeader == "" {
		return errors.New("IDENTITY_HEADER is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ModelTimeoutMS <= 0 {
		return errors.New("MODEL_TIMEOUT_MS must be positive")
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction {
		if c.AuthMode == AuthModeHeader {
			log.Println("WARNING: AUTH_MODE is 'header' in production. Header identity is asserted, not verified; front with a trusted gateway or switch to 'jwt'.")
		}
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	}

	return nil
}
