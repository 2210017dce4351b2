package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	MetricsAddr  string
	DataRoot     string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	Workers      int
	FetchRPS     int
	CacheTTL     time.Duration
	ContactPhone string
	CORSOrigins  []string
}

// Load reads the environment, after merging an optional .env file (or the
// file named by envPath). Variables already set win over the file.
func Load(envPath ...string) Config {
	loadDotEnv(envPath...)

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		DataRoot:     env("DATA_ROOT", "public/data"),
		MySQLDSN:     env("MYSQL_DSN", ""),
		RedisAddr:    env("REDIS_ADDR", ""),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		Workers:      atoi("INGEST_WORKERS", 8),
		FetchRPS:     atoi("FETCH_RPS", 5),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		ContactPhone: env("CONTACT_PHONE", "+971556628972"),
		CORSOrigins:  list(env("CORS_ORIGINS", "")),
	}
	return c
}

func loadDotEnv(envPath ...string) {
	var err error
	if len(envPath) > 0 && envPath[0] != "" {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	switch {
	case err == nil:
		log.Debug().Msg(".env loaded")
	case errors.Is(err, fs.ErrNotExist):
		// optional
	default:
		log.Warn().Err(err).Msg("could not load .env file")
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// list splits a comma-separated value, dropping blanks.
func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
