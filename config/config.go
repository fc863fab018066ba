package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Settings holds the storefront client configuration, loaded from the
// environment (main loads .env first via godotenv).
type Settings struct {
	// APIBaseURL is the remote backend root, e.g. https://api.example.com/api
	APIBaseURL string
	// SocketURL is the push channel endpoint. Derived from APIBaseURL
	// when unset: the /api suffix is stripped and /ws appended, because
	// the push channel is served from the server root.
	SocketURL string
	// Token is the persisted session token, if any.
	Token string
	// TableNumber marks a dine-in session and scopes the local order cache.
	TableNumber string
	// PollInterval is the tracking view refresh interval.
	PollInterval time.Duration
}

const defaultAPIBaseURL = "http://localhost:8080/api"

// Load reads settings from the environment.
func Load() Settings {
	s := Settings{
		APIBaseURL:   os.Getenv("API_BASE_URL"),
		SocketURL:    os.Getenv("SOCKET_URL"),
		Token:        os.Getenv("SESSION_TOKEN"),
		TableNumber:  os.Getenv("TABLE_NUMBER"),
		PollInterval: 4 * time.Second,
	}
	if s.APIBaseURL == "" {
		s.APIBaseURL = defaultAPIBaseURL
	}
	if s.SocketURL == "" {
		s.SocketURL = SocketURLFrom(s.APIBaseURL)
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.PollInterval = d
		}
	}
	return s
}

// SocketURLFrom derives the websocket endpoint from the API base URL.
func SocketURLFrom(apiBaseURL string) string {
	root := strings.TrimSuffix(strings.TrimRight(apiBaseURL, "/"), "/api")
	root = strings.Replace(root, "https://", "wss://", 1)
	root = strings.Replace(root, "http://", "ws://", 1)
	return root + "/ws"
}

// InitCacheDB opens the local order cache database. SQLite is the
// default (one file per device, the localStorage analog); MySQL can be
// selected for dine-in kiosk fleets that share one cache.
func InitCacheDB() (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch os.Getenv("CACHE_DRIVER") {
	case "mysql":
		dsn := os.Getenv("CACHE_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("CACHE_DRIVER=mysql requires CACHE_DSN")
		}
		return gorm.Open(mysql.Open(dsn), cfg)
	case "", "sqlite":
		path := os.Getenv("CACHE_PATH")
		if path == "" {
			path = "foodie_cache.db"
		}
		return gorm.Open(sqlite.Open(path), cfg)
	default:
		return nil, fmt.Errorf("unsupported CACHE_DRIVER %q", os.Getenv("CACHE_DRIVER"))
	}
}
