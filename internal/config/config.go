package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	HistoryPostgres = "postgres"
	HistoryBadger   = "badger"
	HistoryMemory   = "memory"
)

type Config struct {
	HTTPAddr    string
	ObsHTTPAddr string
	GRPCAddr    string
	ServiceName string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	DatabaseURL      string
	HistoryBackend   string
	BadgerPath       string
	RedisAddr        string
	HistoryCacheSize int
	ProfileCacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	TracingEnabled bool
	JaegerURL      string

	AuthTimeout    time.Duration
	PersistTimeout time.Duration
	SendQueueSize  int
	HistoryLimit   int

	InviteCodeLength      int
	InviteCodeMaxAttempts int

	UploadDir      string
	UploadBaseURL  string
	MaxUploadBytes int64

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func Load() *Config {
	return &Config{
		HTTPAddr:    fixPort(getEnv("HTTP_PORT", ":8080")),
		ObsHTTPAddr: fixPort(getEnv("HTTP_ADDR", ":8090")),
		GRPCAddr:    fixPort(getEnv("GRPC_ADDR", ":50060")),
		ServiceName: getEnv("SERVICE_NAME", "rooms-service"),

		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		JWTIssuer:   getEnv("JWT_ISSUER", "realchat-auth"),
		JWTAudience: getEnv("JWT_AUDIENCE", "realchat-clients"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		HistoryBackend:   strings.ToLower(getEnv("HISTORY_BACKEND", HistoryMemory)),
		BadgerPath:       getEnv("BADGER_PATH", "./data/history"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		HistoryCacheSize: getEnvInt("HISTORY_CACHE_SIZE", 50),
		ProfileCacheTTL:  getEnvDuration("PROFILE_CACHE_TTL", time.Hour),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "room-events"),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		JaegerURL:      getEnv("JAEGER_URL", "http://localhost:14268/api/traces"),

		AuthTimeout:    getEnvDuration("AUTH_TIMEOUT", 10*time.Second),
		PersistTimeout: getEnvDuration("PERSIST_TIMEOUT", 5*time.Second),
		SendQueueSize:  getEnvInt("SEND_QUEUE_SIZE", 128),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", 50),

		InviteCodeLength:      getEnvInt("INVITE_CODE_LENGTH", 6),
		InviteCodeMaxAttempts: getEnvInt("INVITE_CODE_MAX_ATTEMPTS", 32),

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		UploadBaseURL:  getEnv("UPLOAD_BASE_URL", "/uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// Validate reports settings the process cannot start with.
func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case HistoryMemory, HistoryBadger:
	case HistoryPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("HISTORY_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q", c.HistoryBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.InviteCodeLength <= 0 || c.InviteCodeMaxAttempts <= 0 {
		return fmt.Errorf("invite code length and attempts must be positive")
	}
	return nil
}

func fixPort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true"
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
