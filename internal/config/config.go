// Package config loads the server configuration from the environment.
//
// THREE REQUIRED VALUES:
// The app cannot do anything useful without the store endpoint, the store's
// public (anon) key and the OMDb credential, so a missing one is a fatal
// startup condition. Load reports ALL missing names at once; main logs them
// and exits non-zero.
//
// Everything else has a default. A .env file (if present) is read first by
// cmd/server via godotenv, so these lookups see its values too.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMissingRequired is wrapped by Load when a required variable is unset.
var ErrMissingRequired = errors.New("missing required configuration")

const (
	DefaultPort          = 8080
	DefaultLogLevel      = "info"
	DefaultSessionDBPath = "data/sessions.db"
	DefaultOMDbBaseURL   = "https://www.omdbapi.com/"
	DefaultStaticDir     = "web/static"
)

// Config holds everything the server needs at startup.
type Config struct {
	// Required
	SupabaseURL     string
	SupabaseAnonKey string
	OMDbAPIKey      string

	// Optional
	Port              int
	LogLevel          string
	SiteURL           string // email-confirmation redirect target
	SessionSecret     string // signs session cookies; random per process when empty
	SessionDBPath     string
	DatabaseURL       string // when set, the watchlist talks to Postgres directly
	SupabaseJWTSecret string // when set, provider access tokens are verified (HS256)
	OMDbBaseURL       string
	StaticDir         string
}

// Load reads the configuration through getenv (usually os.Getenv).
func Load(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		SupabaseURL:       strings.TrimRight(get("SUPABASE_URL"), "/"),
		SupabaseAnonKey:   get("SUPABASE_ANON_KEY"),
		OMDbAPIKey:        get("OMDB_API_KEY"),
		Port:              DefaultPort,
		LogLevel:          orDefault(get("LOG_LEVEL"), DefaultLogLevel),
		SessionSecret:     get("SESSION_SECRET"),
		SessionDBPath:     orDefault(get("SESSION_DB_PATH"), DefaultSessionDBPath),
		DatabaseURL:       get("DATABASE_URL"),
		SupabaseJWTSecret: get("SUPABASE_JWT_SECRET"),
		OMDbBaseURL:       orDefault(get("OMDB_BASE_URL"), DefaultOMDbBaseURL),
		StaticDir:         orDefault(get("STATIC_DIR"), DefaultStaticDir),
	}

	var missing []string
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if cfg.OMDbAPIKey == "" {
		missing = append(missing, "OMDB_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	if _, err := url.ParseRequestURI(cfg.SupabaseURL); err != nil {
		return Config{}, fmt.Errorf("config: invalid SUPABASE_URL %q: %w", cfg.SupabaseURL, err)
	}

	if portStr := get("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("config: invalid PORT value %q", portStr)
		}
		cfg.Port = port
	}

	cfg.SiteURL = get("SITE_URL")
	if cfg.SiteURL == "" {
		cfg.SiteURL = fmt.Sprintf("http://localhost:%d/", cfg.Port)
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
