// Package config loads server configuration from the environment.
//
// A .env file in the working directory is read first when present, so
// local development needs no exported variables. Real environment variables
// always win over the file.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	AdminEmails []string `env:"ADMIN_EMAILS" envDefault:"admin@photolog.com" envSeparator:","`

	HTTP     HTTP     `envPrefix:"HTTP_"`
	DB       DB       `envPrefix:"DB_"`
	Firebase Firebase `envPrefix:"FIREBASE_"`
	Storage  Storage  `envPrefix:"MINIO_"`
	SMTP     SMTP     `envPrefix:"SMTP_"`
}

// HTTP contains listener parameters.
type HTTP struct {
	Port        int      `env:"PORT" envDefault:"8000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173,http://localhost:3000" envSeparator:","`
}

// DB contains database parameters.
type DB struct {
	Path string `env:"PATH" envDefault:"data/photolog.db"`
}

// Firebase contains identity provider parameters.
//
// DevSecret switches the server to locally signed HS256 tokens. It must
// never be set in production.
type Firebase struct {
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsPath string `env:"CREDENTIALS_PATH"`
	CheckRevoked    bool   `env:"CHECK_REVOKED" envDefault:"false"`
	DevSecret       string `env:"DEV_SECRET"`
}

// Storage contains object storage parameters.
type Storage struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"photolog-access-key"`
	SecretKey string `env:"SECRET_KEY" envDefault:"photolog-secret-key"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"photolog"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	// PublicURL is the externally reachable base for object URLs.
	// Defaults to the endpoint with the scheme implied by UseSSL.
	PublicURL string `env:"PUBLIC_URL"`
}

// SMTP contains outgoing mail parameters. An empty Host disables mail.
type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"PhotoLog <noreply@photolog.com>"`
}

// Enabled reports whether mail delivery is configured.
func (s SMTP) Enabled() bool { return s.Host != "" }

// BaseURL returns the public URL prefix for stored objects.
func (s Storage) BaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimRight(s.PublicURL, "/")
	}
	scheme := "http"
	if s.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + s.Endpoint
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: HTTP_PORT %d is out of range", c.HTTP.Port)
	}
	if c.Firebase.DevSecret == "" && c.Firebase.ProjectID == "" && c.Firebase.CredentialsPath == "" {
		return fmt.Errorf("config: set FIREBASE_PROJECT_ID, FIREBASE_CREDENTIALS_PATH or FIREBASE_DEV_SECRET")
	}
	if c.Firebase.CheckRevoked && c.Firebase.CredentialsPath == "" {
		return fmt.Errorf("config: FIREBASE_CHECK_REVOKED requires FIREBASE_CREDENTIALS_PATH")
	}
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
