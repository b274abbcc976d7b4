package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"GO_ENV"`
	Port        string `mapstructure:"PORT"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Database
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"` // postgres | sqlite
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	// Auth
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	// Redis (optional, enables the live send throttle)
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Chat tuning
	ChatSendLimit  int           `mapstructure:"CHAT_SEND_LIMIT"`
	ChatSendWindow time.Duration `mapstructure:"CHAT_SEND_WINDOW"`
	TypingThrottle time.Duration `mapstructure:"TYPING_THROTTLE"`
	PollLookback   time.Duration `mapstructure:"POLL_LOOKBACK"`
}

var defaults = map[string]interface{}{
	"GO_ENV":           "development",
	"PORT":             "5000",
	"FRONTEND_URL":     "http://localhost:3000",
	"DATABASE_DRIVER":  "postgres",
	"DATABASE_URL":     "",
	"JWT_SECRET":       "",
	"JWT_TTL":          "24h",
	"REDIS_ADDR":       "",
	"REDIS_PASSWORD":   "",
	"CHAT_SEND_LIMIT":  30,
	"CHAT_SEND_WINDOW": "1m",
	"TYPING_THROTTLE":  "3s",
	"POLL_LOOKBACK":    "5s",
}

// Load reads .env (if present) and the environment. Every key has a default
// so AutomaticEnv can resolve it during Unmarshal.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return errors.New("DATABASE_DRIVER must be postgres or sqlite")
	}
	if c.ChatSendWindow <= 0 {
		return errors.New("CHAT_SEND_WINDOW must be positive")
	}
	if c.ChatSendLimit <= 0 {
		return errors.New("CHAT_SEND_LIMIT must be positive")
	}
	return nil
}
