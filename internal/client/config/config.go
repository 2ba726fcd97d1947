package config

import "time"

// Config holds runtime settings for the medadmin client.
type Config struct {
	// APIBaseURL is scheme://host[:port] of the backend.
	APIBaseURL string
	// APIPrefix is prepended to every request path.
	APIPrefix string

	LoginPath   string
	RefreshPath string
	HealthPath  string

	// LoginRoute is the navigation entry point users are sent to when the
	// session cannot be recovered.
	LoginRoute string

	OnlineCheckInterval time.Duration
	// RefreshBuffer is how close to expiry an access token may get before
	// it is refreshed ahead of a request.
	RefreshBuffer time.Duration
	// RefreshWaitTimeout bounds how long a request waits for somebody
	// else's refresh.
	RefreshWaitTimeout time.Duration
	RedirectDelay      time.Duration
	// LoginResetDelay clears the redirect latch when the failure happened
	// while already on the login route.
	LoginResetDelay time.Duration

	RequestTimeout time.Duration
	MaxRetries     int

	DBPath    string
	LogLevel  string
	DebugAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.APIPrefix = "/api/v1"
	c.LoginPath = "/auth/login"
	c.RefreshPath = "/auth/refresh-token"
	c.HealthPath = "/health"
	c.LoginRoute = "/login"
	c.OnlineCheckInterval = 3 * time.Second
	c.RefreshBuffer = 120 * time.Second
	c.RefreshWaitTimeout = 5 * time.Second
	c.RedirectDelay = 100 * time.Millisecond
	c.LoginResetDelay = time.Second
	c.RequestTimeout = 30 * time.Second
	c.MaxRetries = 2
	c.DBPath = "medadmin.db"
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, then the optional JSON file,
// then MEDADMIN_* environment variables, then command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg); err != nil {
		panic(err)
	}
	parseFlags(cfg)
	return cfg
}
