package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/flagx"
	"github.com/dmitrijs2005/tailorkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "10s" or as integer nanoseconds. Pointer fields tell an
// absent key from a zero value.
type JsonConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr"`
	PingURL             *string         `json:"ping_url"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	ProbeTimeout        *timex.Duration `json:"probe_timeout"`
	CallTimeout         *timex.Duration `json:"call_timeout"`
	DBPath              *string         `json:"db_path"`
	Refresh             *bool           `json:"refresh"`
	LogLevel            *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named with
// -c or -config. Without the flag it does nothing. Keys absent from the file
// leave the current values alone. The token is never read from JSON.
//
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setStr(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setStr(&cfg.PingURL, jc.PingURL)
	setDur(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDur(&cfg.ProbeTimeout, jc.ProbeTimeout)
	setDur(&cfg.CallTimeout, jc.CallTimeout)
	setStr(&cfg.DBPath, jc.DBPath)
	setStr(&cfg.LogLevel, jc.LogLevel)
	if jc.Refresh != nil {
		cfg.Refresh = *jc.Refresh
	}
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDur(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = time.Duration(v.Duration)
	}
}
