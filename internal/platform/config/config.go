// Package config loads runtime configuration from the environment, with an
// optional YAML file overlay named by MEDINAUTS_CONFIG.
//
// Precedence: defaults, then the YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures the intake gateway configuration.
type Server struct {
	Addr        string `yaml:"addr"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// BackendURL is the base URL of the auth and feedback collaborators, and
	// the default for the scan and prediction collaborators.
	BackendURL string `yaml:"backend_url"`
	ScanURL    string `yaml:"scan_url"`
	PredictURL string `yaml:"predict_url"`

	ScanTimeout     time.Duration `yaml:"scan_timeout"`
	PredictTimeout  time.Duration `yaml:"predict_timeout"`
	ScanConcurrency int           `yaml:"scan_concurrency"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`

	// BreakerFailures consecutive failed calls open a collaborator's circuit
	// for BreakerCooldown.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	SessionTTL time.Duration `yaml:"session_ttl"`
	Redis      RedisConfig   `yaml:"redis"`

	TokenDBPath string     `yaml:"token_db_path"`
	SMTP        SMTPConfig `yaml:"smtp"`
	ChromePath  string     `yaml:"chrome_path"`

	// JWTSigningKey and TokenTTL are used by the local mock backend and
	// tokengen only; the gateway never validates tokens itself.
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// RedisConfig configures the optional redis session store. An empty URL
// keeps sessions in memory.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SMTPConfig configures report emails. An empty host disables them.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Defaults returns the development configuration.
func Defaults() Server {
	return Server{
		Addr:            ":8080",
		Environment:     "development",
		LogLevel:        "info",
		BackendURL:      "http://localhost:8000",
		ScanTimeout:     60 * time.Second,
		PredictTimeout:  30 * time.Second,
		ScanConcurrency: 1,
		MaxUploadBytes:  20 << 20,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		SessionTTL:      2 * time.Hour,
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		TokenDBPath: defaultTokenDBPath(),
		SMTP: SMTPConfig{
			Port: 587,
			From: "reports@medinauts.local",
		},
		JWTSigningKey: "supersecretkey123",
		TokenTTL:      30 * time.Minute,
	}
}

// FromEnv builds a Server config so main stays lean. It fails only when the
// YAML overlay exists but cannot be parsed.
func FromEnv() (Server, error) {
	cfg := Defaults()
	if path := os.Getenv("MEDINAUTS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Server{}, err
		}
	}
	cfg.applyEnv()
	cfg.fillCollaboratorURLs()
	return cfg, nil
}

func (c *Server) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Server) applyEnv() {
	setString(&c.Addr, "MEDINAUTS_ADDR")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.BackendURL, "MEDINAUTS_API_URL")
	setString(&c.ScanURL, "MEDINAUTS_SCAN_URL")
	setString(&c.PredictURL, "MEDINAUTS_PREDICT_URL")
	setDuration(&c.ScanTimeout, "SCAN_TIMEOUT")
	setDuration(&c.PredictTimeout, "PREDICT_TIMEOUT")
	setInt(&c.ScanConcurrency, "SCAN_CONCURRENCY")
	if v, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_BYTES"), 10, 64); err == nil && v > 0 {
		c.MaxUploadBytes = v
	}
	setInt(&c.BreakerFailures, "BREAKER_FAILURES")
	setDuration(&c.BreakerCooldown, "BREAKER_COOLDOWN")
	setDuration(&c.SessionTTL, "SESSION_TTL")

	setString(&c.Redis.URL, "REDIS_URL")
	setInt(&c.Redis.PoolSize, "REDIS_POOL_SIZE")

	setString(&c.TokenDBPath, "MEDINAUTS_TOKEN_DB")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setInt(&c.SMTP.Port, "SMTP_PORT")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.From, "SMTP_FROM")
	setString(&c.ChromePath, "CHROME_PATH")

	setString(&c.JWTSigningKey, "SECRET_KEY")
	setDuration(&c.TokenTTL, "TOKEN_TTL")
}

func (c *Server) fillCollaboratorURLs() {
	if c.ScanURL == "" {
		c.ScanURL = c.BackendURL
	}
	if c.PredictURL == "" {
		c.PredictURL = c.BackendURL
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		*dst = v
	}
}

func defaultTokenDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "medinauts-token.db"
	}
	return filepath.Join(dir, "medinauts", "token.db")
}
