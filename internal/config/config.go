// Package config loads settings from a .env file (if present) and the
// environment. Environment variables always win.
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"athletics-registry/internal/util"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

const defaultSecret = "change-me"

type Config struct {
	StoreBackend     string
	StoreEndpointURL string
	StoreSecret      string
	StoreTimeout     time.Duration
	// ServeStore mounts the store protocol at /exec. It needs StoreSecret.
	ServeStore       bool

	SpreadsheetID            string
	GoogleServiceAccountJSON string

	DatabaseURL string

	JWTSecret  string
	SessionTTL time.Duration

	TelegramToken string
	AdminTGIDs    map[int64]bool

	HTTPAddr string
	Debug    bool
}

// ClientConfig is what regctl needs: where the store lives and where to keep
// the session between invocations.
type ClientConfig struct {
	StoreEndpointURL string
	StoreSecret      string
	StoreTimeout     time.Duration

	SessionSecret string
	SessionTTL    time.Duration
	StateFile     string

	Debug bool
}

func FromEnv() (Config, error) {
	v := newViper()
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("STORE_TIMEOUT", "30s")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("JWT_SECRET", defaultSecret)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("SERVE_STORE_ENDPOINT", false)

	c := Config{
		StoreBackend:             strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		StoreEndpointURL:         strings.TrimSpace(v.GetString("STORE_ENDPOINT_URL")),
		StoreSecret:              strings.TrimSpace(v.GetString("STORE_SECRET")),
		StoreTimeout:             v.GetDuration("STORE_TIMEOUT"),
		ServeStore:               v.GetBool("SERVE_STORE_ENDPOINT"),
		SpreadsheetID:            strings.TrimSpace(v.GetString("GOOGLE_SHEETS_SPREADSHEET_ID")),
		GoogleServiceAccountJSON: strings.TrimSpace(v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON")),
		DatabaseURL:              strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:                v.GetString("JWT_SECRET"),
		SessionTTL:               v.GetDuration("SESSION_TTL"),
		TelegramToken:            strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		AdminTGIDs:               parseAdminIDs(v.GetString("ADMIN_TG_IDS")),
		HTTPAddr:                 strings.TrimSpace(v.GetString("HTTP_ADDR")),
		Debug:                    v.GetBool("DEBUG"),
	}
	return c, c.validate()
}

func ClientFromEnv() (ClientConfig, error) {
	v := newViper()
	v.SetDefault("STORE_ENDPOINT_URL", "http://localhost:8080/exec")
	v.SetDefault("STORE_TIMEOUT", "30s")
	v.SetDefault("SESSION_SECRET", defaultSecret)
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("REGCTL_STATE", ".regctl.json")

	c := ClientConfig{
		StoreEndpointURL: strings.TrimSpace(v.GetString("STORE_ENDPOINT_URL")),
		StoreSecret:      strings.TrimSpace(v.GetString("STORE_SECRET")),
		StoreTimeout:     v.GetDuration("STORE_TIMEOUT"),
		SessionSecret:    v.GetString("SESSION_SECRET"),
		SessionTTL:       v.GetDuration("SESSION_TTL"),
		StateFile:        strings.TrimSpace(v.GetString("REGCTL_STATE")),
		Debug:            v.GetBool("DEBUG"),
	}
	if c.StoreEndpointURL == "" {
		return c, fmt.Errorf("STORE_ENDPOINT_URL is empty")
	}
	if c.SessionTTL <= 0 {
		return c, fmt.Errorf("SESSION_TTL must be positive")
	}
	return c, nil
}

// DefaultSecret reports whether the JWT secret was left at its placeholder.
func (c Config) DefaultSecret() bool {
	return c.JWTSecret == defaultSecret
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID is empty")
		}
		if c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is empty")
		}
	case BackendRemote:
		if c.StoreEndpointURL == "" {
			return fmt.Errorf("STORE_ENDPOINT_URL is empty")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ServeStore {
		if c.StoreBackend == BackendRemote {
			return fmt.Errorf("SERVE_STORE_ENDPOINT needs a local backend, not %q", c.StoreBackend)
		}
		if c.StoreSecret == "" {
			return fmt.Errorf("SERVE_STORE_ENDPOINT requires STORE_SECRET")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}
	v := viper.New()
	v.AutomaticEnv()
	return v
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	for _, p := range util.SplitTrimmed(raw, ",") {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		m[id] = true
	}
	return m
}
