// Package config loads the service configuration from a YAML file, an
// optional .env file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/crm/internal/contacts/db"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

// Config struct for YAML configuration
type Config struct {
	GRPCPort       int           `yaml:"GRPC_PORT"`
	HTTPPort       int           `yaml:"HTTP_PORT"`
	DBHost         string        `yaml:"DB_HOST"`
	DBPort         int           `yaml:"DB_PORT"`
	DBUser         string        `yaml:"DB_USER"`
	DBPassword     string        `yaml:"DB_PASSWORD"`
	DBName         string        `yaml:"DB_NAME"`
	DBSSLMode      string        `yaml:"DB_SSLMODE"`
	KafkaBrokers   []string      `yaml:"KAFKA_BROKERS"`
	Topic          string        `yaml:"TOPIC"`
	ConsumerGroup  string        `yaml:"CONSUMER_GROUP"`
	AuthMode       string        `yaml:"AUTH_MODE"`
	JWTSecret      string        `yaml:"JWT_SECRET"`
	AuthURL        string        `yaml:"AUTH_URL"`
	AuthAPIKey     string        `yaml:"AUTH_API_KEY"`
	AuthTimeout    time.Duration `yaml:"AUTH_TIMEOUT"`
	RedisAddr      string        `yaml:"REDIS_ADDR"`
	RedisPassword  string        `yaml:"REDIS_PASSWORD"`
	RedisDB        int           `yaml:"REDIS_DB"`
	CandidateTTL   time.Duration `yaml:"CANDIDATE_TTL"`
	AllowedOrigins []string      `yaml:"ALLOWED_ORIGINS"`

	// DetailedErrorStatus answers save-contact failures with 400/401/404/409/502
	// instead of the 500 the function contract prescribes.
	DetailedErrorStatus bool `yaml:"DETAILED_ERROR_STATUS"`
}

// Path returns the config file location, CONTACTS_CONFIG if set.
func Path() string {
	if p := os.Getenv("CONTACTS_CONFIG"); p != "" {
		return p
	}
	return filepath.Join("internal", "contacts", "config", "config.yaml")
}

// Load reads the YAML file at path, then applies a .env file from the
// working directory if present and finally the process environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB_HOST":        &c.DBHost,
		"DB_USER":        &c.DBUser,
		"DB_PASSWORD":    &c.DBPassword,
		"DB_NAME":        &c.DBName,
		"DB_SSLMODE":     &c.DBSSLMode,
		"TOPIC":          &c.Topic,
		"CONSUMER_GROUP": &c.ConsumerGroup,
		"AUTH_MODE":      &c.AuthMode,
		"JWT_SECRET":     &c.JWTSecret,
		"AUTH_URL":       &c.AuthURL,
		"AUTH_API_KEY":   &c.AuthAPIKey,
		"REDIS_ADDR":     &c.RedisAddr,
		"REDIS_PASSWORD": &c.RedisPassword,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GRPC_PORT": &c.GRPCPort,
		"HTTP_PORT": &c.HTTPPort,
		"DB_PORT":   &c.DBPort,
		"REDIS_DB":  &c.RedisDB,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"AUTH_TIMEOUT":  &c.AuthTimeout,
		"CANDIDATE_TTL": &c.CandidateTTL,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv("DETAILED_ERROR_STATUS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DETAILED_ERROR_STATUS %q: %w", v, err)
		}
		c.DetailedErrorStatus = b
	}

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.GRPCPort == 0 {
		c.GRPCPort = 9090
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.Topic == "" {
		c.Topic = "contacts"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "contacts-cache"
	}
	if c.AuthMode == "" {
		c.AuthMode = AuthModeJWT
	}
	if c.AuthTimeout == 0 {
		c.AuthTimeout = 5 * time.Second
	}
	if c.CandidateTTL == 0 {
		c.CandidateTTL = 5 * time.Minute
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE is jwt")
		}
	case AuthModeRemote:
		if c.AuthURL == "" {
			return errors.New("AUTH_URL is required when AUTH_MODE is remote")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}
	if c.DBHost == "" || c.DBName == "" {
		return errors.New("DB_HOST and DB_NAME are required")
	}
	return nil
}

// Database returns the repository connection settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
