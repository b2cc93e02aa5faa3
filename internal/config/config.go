package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Clicks    ClicksConfig
}

type AppConfig struct {
	Port    string
	BaseURL string // public base for short URLs, e.g. https://lnkc.nt
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> owner id
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ClicksConfig struct {
	Workers    int
	BufferSize int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.App.BaseURL = viper.GetString("BASE_URL")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.Password = viper.GetString("REDIS_PASSWORD")

	// API keys arrive as a comma-separated "key:owner" list.
	cfg.Auth.APIKeys = parseAPIKeys(viper.GetString("API_KEYS"))

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Clicks.Workers = viper.GetInt("CLICK_WORKERS")
	if cfg.Clicks.Workers == 0 {
		cfg.Clicks.Workers = 3
	}
	cfg.Clicks.BufferSize = viper.GetInt("CLICK_BUFFER")
	if cfg.Clicks.BufferSize == 0 {
		cfg.Clicks.BufferSize = 1000
	}

	return &cfg, nil
}

// parseAPIKeys parses comma-separated API keys in format "key1:owner1,key2:owner2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}
