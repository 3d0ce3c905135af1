package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	SmoobuAPIURL     string
	SmoobuBookingURL string
	SmoobuKey        string
	SmoobuRPS        int

	SyncPageSize int
	SyncTimeout  time.Duration
	CacheTTL     time.Duration
}

// Load reads the environment, after an optional .env in the working
// directory. Real environment variables win over .env entries.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be read")
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/propman?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		SmoobuAPIURL:     env("SMOOBU_API_URL", "https://login.smoobu.com/api"),
		SmoobuBookingURL: env("SMOOBU_BOOKING_URL", "https://login.smoobu.com/booking"),
		SmoobuKey:        env("SMOOBU_API_KEY", ""),
		SmoobuRPS:        atoi("SMOOBU_RPS", 5),

		SyncPageSize: atoi("SYNC_PAGE_SIZE", 100),
		SyncTimeout:  time.Duration(atoi("SYNC_TIMEOUT_SECONDS", 300)) * time.Second,
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.SmoobuKey == "" {
		log.Warn().Msg("SMOOBU_API_KEY is empty; Smoobu operations will be rejected")
	}
	return c
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("not a number, using default")
	}
	return def
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
