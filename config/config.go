// Package config provides environment-based configuration for MerchAuth.
//
// Configuration is loaded from environment variables using Viper, with
// sensible defaults for development.
//
// # Environment Variables
//
//   - DB_TYPE: Database type (sqlite, postgres, mysql). Default: sqlite
//   - DSN: Database connection string. Default: merchauth.db
//   - SKIP_AUTO_MIGRATE: Skip automatic database migrations. Default: false
//   - LOG_LEVEL: Logging level (debug, info, warn, error). Default: info
//   - PORT: HTTP server port. Default: 8080
//   - COOKIE_SECURE: Secure flag on auth cookies. Default: true; switch off
//     only for local development over plain HTTP.
//   - PROVIDER_URL / PROVIDER_KEY: external identity provider endpoint and
//     API key. Leave both empty to run in local-only mode.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DBType          string `mapstructure:"DB_TYPE"` // sqlite, postgres, mysql
	DSN             string `mapstructure:"DSN"`
	SkipAutoMigrate bool   `mapstructure:"SKIP_AUTO_MIGRATE"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	Port            int    `mapstructure:"PORT"`
	CookieSecure    bool   `mapstructure:"COOKIE_SECURE"`
	ProviderURL     string `mapstructure:"PROVIDER_URL"`
	ProviderKey     string `mapstructure:"PROVIDER_KEY"`
}

func Load() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "merchauth.db")
	viper.SetDefault("SKIP_AUTO_MIGRATE", false)
	viper.SetDefault("COOKIE_SECURE", true)
	viper.SetDefault("PROVIDER_URL", "")
	viper.SetDefault("PROVIDER_KEY", "")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
