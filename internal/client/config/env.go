package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/tailorkeeper/internal/flagx"
)

// Environment variables read by parseEnv.
const (
	EnvServerAddr    = "TAILOR_SERVER_ADDR"
	EnvPingURL       = "TAILOR_PING_URL"
	EnvCheckInterval = "TAILOR_CHECK_INTERVAL"
	EnvProbeTimeout  = "TAILOR_PROBE_TIMEOUT"
	EnvCallTimeout   = "TAILOR_CALL_TIMEOUT"
	EnvDBPath        = "TAILOR_DB_PATH"
	EnvToken         = "TAILOR_TOKEN"
	EnvRefresh       = "TAILOR_REFRESH"
	EnvLogLevel      = "TAILOR_LOG_LEVEL"
)

// parseEnv overlays Config with TAILOR_* environment variables.
//
// A dotenv file named with -env is loaded first; without the flag a .env
// file in the working directory is loaded if it exists. Variables already
// set in the environment are not overridden by the file.
//
// Panics on an unreadable dotenv file or an unparsable value.
func parseEnv(cfg *Config) {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str(EnvServerAddr, &cfg.ServerEndpointAddr)
	str(EnvPingURL, &cfg.PingURL)
	dur(EnvCheckInterval, &cfg.OnlineCheckInterval)
	dur(EnvProbeTimeout, &cfg.ProbeTimeout)
	dur(EnvCallTimeout, &cfg.CallTimeout)
	str(EnvDBPath, &cfg.DBPath)
	str(EnvToken, &cfg.Token)
	str(EnvLogLevel, &cfg.LogLevel)

	if v, ok := os.LookupEnv(EnvRefresh); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		cfg.Refresh = b
	}
}
