package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/tailorkeeper/internal/flagx"
)

// Environment variables read by parseEnv. Secrets usually arrive this way
// rather than on the command line.
const (
	EnvDatabaseDSN    = "TAILOR_DATABASE_DSN"
	EnvSecretKey      = "TAILOR_SECRET_KEY"
	EnvS3RootUser     = "TAILOR_S3_ROOT_USER"
	EnvS3RootPassword = "TAILOR_S3_ROOT_PASSWORD"
	EnvS3Bucket       = "TAILOR_S3_BUCKET"
	EnvS3Endpoint     = "TAILOR_S3_ENDPOINT"
	EnvPresignExpiry  = "TAILOR_PRESIGN_EXPIRY"
	EnvLogLevel       = "TAILOR_LOG_LEVEL"
)

// parseEnv overlays Config with TAILOR_* environment variables, after
// loading the dotenv file named with -env (or ./.env when present).
//
// Panics on an unreadable dotenv file or an unparsable duration.
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

	str(EnvDatabaseDSN, &cfg.DatabaseDSN)
	str(EnvSecretKey, &cfg.SecretKey)
	str(EnvS3RootUser, &cfg.S3RootUser)
	str(EnvS3RootPassword, &cfg.S3RootPassword)
	str(EnvS3Bucket, &cfg.S3Bucket)
	str(EnvS3Endpoint, &cfg.S3BaseEndpoint)
	str(EnvLogLevel, &cfg.LogLevel)

	if v, ok := os.LookupEnv(EnvPresignExpiry); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.PresignExpiry = d
	}
}
