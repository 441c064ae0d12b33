package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	ApprovalStore string // mysql|sqlite
	MySQLDSN      string
	SQLitePath    string

	RedisAddr string
	RedisDB   int
	RedisPass string

	HostawayBase      string
	HostawayAccountID string
	HostawayKey       string
	HostawayRPS       int
	CacheDuration     time.Duration
	FetchTimeout      time.Duration
	FallbackDataset   string

	CacheTTL       time.Duration
	DigestWorkers  int
	DigestListings []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		ApprovalStore: strings.ToLower(env("APPROVAL_STORE", "sqlite")),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		SQLitePath:    env("SQLITE_PATH", "data/approvals.db"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),

		HostawayBase:      env("HOSTAWAY_API_URL", "https://api.hostaway.com"),
		HostawayAccountID: env("HOSTAWAY_ACCOUNT_ID", ""),
		HostawayKey:       env("HOSTAWAY_API_KEY", ""),
		HostawayRPS:       atoi("HOSTAWAY_RPS", 5),
		CacheDuration:     time.Duration(atoi("HOSTAWAY_CACHE_DURATION", 3600)) * time.Second,
		FetchTimeout:      time.Duration(atoi("HOSTAWAY_TIMEOUT_SECONDS", 10)) * time.Second,
		FallbackDataset:   env("FALLBACK_DATASET", "data/hostaway.json"),

		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		DigestWorkers:  atoi("DIGEST_WORKERS", 4),
		DigestListings: list(os.Getenv("DIGEST_LISTINGS")),
	}
	if c.HostawayKey == "" || c.HostawayAccountID == "" {
		log.Warn().Msg("HOSTAWAY_ACCOUNT_ID or HOSTAWAY_API_KEY is empty, serving the fallback dataset")
	}
	return c
}

// HostawayConfigured reports whether live fetching is possible.
func (c Config) HostawayConfigured() bool {
	return c.HostawayKey != "" && c.HostawayAccountID != ""
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// list splits a comma separated value, dropping blanks.
func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
