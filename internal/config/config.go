package config

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt"
)

const DefaultHistoryLimit = 50

type Config struct {
	// ServerURL is the base HTTP URL of the marketplace backend.
	ServerURL    string `env:"CHAT_SERVER_URL" envDefault:"http://localhost:8000"`
	UserId       int    `env:"CHAT_USER_ID"`
	Token        string `env:"CHAT_TOKEN"`
	HistoryLimit int    `env:"CHAT_HISTORY_LIMIT" envDefault:"50"`
	Reconnect    bool   `env:"CHAT_RECONNECT"`
	MaxRedials   uint   `env:"CHAT_MAX_REDIALS" envDefault:"5"`
	DebugAddr    string `env:"CHAT_DEBUG_ADDR"`
	Debug        bool   `env:"CHAT_DEBUG"`
	JSONLogs     bool   `env:"CHAT_JSON_LOGS"`
}

// FromEnv reads configuration from CHAT_* environment variables. Flags may
// override the result before Validate is called.
func FromEnv() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL must be http or https, got %q", c.ServerURL)
	}

	if c.UserId <= 0 {
		return fmt.Errorf("user id must be positive")
	}
	if c.Token == "" {
		return fmt.Errorf("session token cannot be empty")
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}

	if err := c.checkToken(); err != nil {
		return fmt.Errorf("session token: %w", err)
	}

	return nil
}

// checkToken sanity-checks the token without verifying the signature; the
// server is the authority. This only catches an expired or mismatched token
// before dialing.
func (c *Config) checkToken() error {
	claims := jwt.MapClaims{}
	if _, _, err := (&jwt.Parser{}).ParseUnverified(c.Token, claims); err != nil {
		return err
	}

	if !claims.VerifyExpiresAt(time.Now().Unix(), false) {
		return fmt.Errorf("token is expired")
	}

	if sub, ok := claims["sub"]; ok {
		if fmt.Sprint(sub) != strconv.Itoa(c.UserId) {
			return fmt.Errorf("token subject does not match user id")
		}
	}

	return nil
}

// WSURL derives the websocket endpoint for the configured user, carrying the
// session token as a connection parameter.
func (c *Config) WSURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}

	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	u.Path = path.Join("/", u.Path, "api/v1/chat/ws", strconv.Itoa(c.UserId))

	q := u.Query()
	q.Set("token", c.Token)
	u.RawQuery = q.Encode()

	return u.String()
}
