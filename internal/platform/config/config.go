package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "noticerecon/pkg/platform/strings"
)

// Server captures process-level configuration for the reconciliation service.
type Server struct {
	Addr        string
	DatabaseDSN string
	AdminToken  string
	TestMode    bool

	Exchange ExchangeConfig
	Lookup   LookupConfig
	Redis    RedisConfig
	Recon    ReconConfig
}

// ExchangeConfig locates the agency file-exchange directories. SFTP transport
// delivers into InboundDir and collects from OutboundDir; this service only
// touches the local directories.
type ExchangeConfig struct {
	InboundDir  string
	OutboundDir string
	ArchiveDir  string
}

// LookupConfig configures the secondary identity-lookup gateway.
type LookupConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig configures the optional processed-file dedupe set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ReconConfig tunes the batch engine.
type ReconConfig struct {
	Workers        int
	Stages         []string
	RevivalDaysNRO int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:        envOr("RECON_ADDR", ":8080"),
		DatabaseDSN: os.Getenv("RECON_DATABASE_DSN"),
		AdminToken:  os.Getenv("RECON_ADMIN_TOKEN"),
		TestMode:    os.Getenv("RECON_TEST_MODE") == "true",
		Exchange: ExchangeConfig{
			InboundDir:  envOr("RECON_EXCHANGE_INBOUND", "exchange/inbound"),
			OutboundDir: envOr("RECON_EXCHANGE_OUTBOUND", "exchange/outbound"),
			ArchiveDir:  envOr("RECON_EXCHANGE_ARCHIVE", "exchange/archive"),
		},
		Lookup: LookupConfig{
			BaseURL: os.Getenv("RECON_LOOKUP_URL"),
			Timeout: envDuration("RECON_LOOKUP_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("RECON_REDIS_URL"),
			PoolSize:     envInt("RECON_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("RECON_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("RECON_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("RECON_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("RECON_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Recon: ReconConfig{
			Workers:        envInt("RECON_WORKERS", 4),
			Stages:         envList("RECON_STAGES", []string{"NPA", "ROV", "ENA", "RD1", "RD2"}),
			RevivalDaysNRO: envInt("RECON_REVIVAL_DAYS_NRO", 90),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	out := platformstrings.DedupeAndTrimUpper(strings.Split(v, ","))
	if len(out) == 0 {
		return fallback
	}
	return out
}
