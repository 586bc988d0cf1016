package config

import "time"

// Config holds runtime settings for the tailorkeeper client.
//
// Units: intervals and timeouts are time.Duration values.
type Config struct {
	ServerEndpointAddr  string
	PingURL             string
	OnlineCheckInterval time.Duration
	ProbeTimeout        time.Duration
	CallTimeout         time.Duration
	DBPath              string
	Token               string
	Refresh             bool
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.PingURL = "http://127.0.0.1:8080/api/ping"
	c.OnlineCheckInterval = 10 * time.Second
	c.ProbeTimeout = 3 * time.Second
	c.CallTimeout = 10 * time.Second
	c.DBPath = "tailorkeeper.db"
	c.Refresh = true
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (optionally seeded from a .env file), JSON (if present) and
// command-line flags (if present). Later sources take precedence over earlier
// ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
