// Package config loads runtime configuration for the tailorkeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. TAILOR_* environment variables, optionally seeded from a .env file
//     (-env flag, or ./.env when present).
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-p string   liveness URL (GET, expects {"message":"pong"})
//	-i int      online status check interval (seconds)
//	-d string   local database path
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "ping_url": "http://127.0.0.1:8080/api/ping",
//	  "online_check_interval": "10s",
//	  "probe_timeout": "3s",
//	  "call_timeout": "10s",
//	  "db_path": "tailorkeeper.db",
//	  "refresh": true,
//	  "log_level": "info"
//	}
//
// The access token is read only from TAILOR_TOKEN; the CLI prompts for it
// when it is empty.
package config
