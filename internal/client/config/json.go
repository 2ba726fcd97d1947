package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/medadmin/internal/flagx"
	"github.com/dmitrijs2005/medadmin/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings like "3s" or integer nanoseconds. Absent fields keep the values
// already in Config.
type JsonConfig struct {
	APIBaseURL          string          `json:"api_base_url"`
	APIPrefix           *string         `json:"api_prefix"`
	LoginPath           string          `json:"login_path"`
	RefreshPath         string          `json:"refresh_path"`
	HealthPath          string          `json:"health_path"`
	LoginRoute          string          `json:"login_route"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RefreshBuffer       *timex.Duration `json:"refresh_buffer"`
	RefreshWaitTimeout  *timex.Duration `json:"refresh_wait_timeout"`
	RedirectDelay       *timex.Duration `json:"redirect_delay"`
	LoginResetDelay     *timex.Duration `json:"login_reset_delay"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	MaxRetries          *int            `json:"max_retries"`
	DBPath              string          `json:"db_path"`
	LogLevel            string          `json:"log_level"`
	DebugAddr           string          `json:"debug_addr"`
}

// parseJson overlays cfg with the file named by -c/-config (or
// $MEDADMIN_CONFIG). It panics on read or decode errors.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	if jc.APIPrefix != nil {
		cfg.APIPrefix = *jc.APIPrefix
	}
	setString(&cfg.LoginPath, jc.LoginPath)
	setString(&cfg.RefreshPath, jc.RefreshPath)
	setString(&cfg.HealthPath, jc.HealthPath)
	setString(&cfg.LoginRoute, jc.LoginRoute)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.DebugAddr, jc.DebugAddr)

	for _, d := range []struct {
		dst *time.Duration
		src *timex.Duration
	}{
		{&cfg.OnlineCheckInterval, jc.OnlineCheckInterval},
		{&cfg.RefreshBuffer, jc.RefreshBuffer},
		{&cfg.RefreshWaitTimeout, jc.RefreshWaitTimeout},
		{&cfg.RedirectDelay, jc.RedirectDelay},
		{&cfg.LoginResetDelay, jc.LoginResetDelay},
		{&cfg.RequestTimeout, jc.RequestTimeout},
	} {
		if d.src != nil {
			*d.dst = d.src.Duration
		}
	}

	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
