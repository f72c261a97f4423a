package doctalk

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds connection parameters. The zero value is not usable; start
// from ConfigFromEnv or fill Endpoint and Channel by hand.
type Config struct {
	Endpoint  string `env:"DOCTALK_ENDPOINT" envDefault:"ws://localhost:8000"`
	Channel   string `env:"DOCTALK_CHANNEL" envDefault:"/ws/chat/"`
	Token     string `env:"DOCTALK_TOKEN"`
	TokenFile string `env:"DOCTALK_TOKEN_FILE"`
}

// ConfigFromEnv loads configuration from DOCTALK_* environment variables,
// falling back to local-development defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// target joins the base endpoint and the channel path into a dial URL.
func (c Config) target() string {
	return strings.TrimRight(c.Endpoint, "/") + c.Channel
}

// resolveToken reads the credential token once, at connect time. Token wins
// over TokenFile; an unreadable token file downgrades to an unauthenticated
// connection rather than failing the dial.
func (c Config) resolveToken() string {
	if c.Token != "" {
		return c.Token
	}
	if c.TokenFile == "" {
		return ""
	}
	raw, err := os.ReadFile(c.TokenFile)
	if err != nil {
		slog.Warn("token file unreadable, connecting unauthenticated", "path", c.TokenFile, "error", err)
		return ""
	}
	return strings.TrimSpace(string(raw))
}
