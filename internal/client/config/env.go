package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors the MEDADMIN_* environment variables. Unset variables
// leave the corresponding Config field untouched.
type envConfig struct {
	APIBaseURL          string        `env:"API_URL"`
	APIPrefix           string        `env:"API_PREFIX"`
	LoginRoute          string        `env:"LOGIN_ROUTE"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	RefreshBuffer       time.Duration `env:"REFRESH_BUFFER"`
	RefreshWaitTimeout  time.Duration `env:"REFRESH_WAIT_TIMEOUT"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	DBPath              string        `env:"DB_PATH"`
	LogLevel            string        `env:"LOG_LEVEL"`
	DebugAddr           string        `env:"DEBUG_ADDR"`
}

func parseEnv(cfg *Config) error {
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: "MEDADMIN_"}); err != nil {
		return fmt.Errorf("failed to parse env config: %w", err)
	}

	setString(&cfg.APIBaseURL, ec.APIBaseURL)
	setString(&cfg.APIPrefix, ec.APIPrefix)
	setString(&cfg.LoginRoute, ec.LoginRoute)
	setString(&cfg.DBPath, ec.DBPath)
	setString(&cfg.LogLevel, ec.LogLevel)
	setString(&cfg.DebugAddr, ec.DebugAddr)
	setDuration(&cfg.OnlineCheckInterval, ec.OnlineCheckInterval)
	setDuration(&cfg.RefreshBuffer, ec.RefreshBuffer)
	setDuration(&cfg.RefreshWaitTimeout, ec.RefreshWaitTimeout)
	setDuration(&cfg.RequestTimeout, ec.RequestTimeout)
	return nil
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
