package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const defaultJWTSecret = "livepoll-dev-secret"

// Config is the server configuration. Empty backend URIs disable the backend.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // "console" or "json"

	MongoURI          string
	MongoDB           string
	RedisURI          string
	NATSURL           string
	NATSSubjectPrefix string

	JWTSecret         string
	PresenterTokenTTL time.Duration
	StrictPresenter   bool
	StrictRating      bool
	RatingMin         float64
	RatingMax         float64

	SeedFile           string
	CORSAllowedOrigins []string

	WSMaxMessageSize int64
	WSSendBuffer     int
	DispatchQueue    int
	CodeTTL          time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads .env (if present) and then the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() *Config {
	return &Config{
		Port:      getEnv("PORT", "3000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "livepoll"),
		RedisURI:          os.Getenv("REDIS_URI"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "livepoll.events"),

		JWTSecret:         getEnv("JWT_SECRET", defaultJWTSecret),
		PresenterTokenTTL: getEnvDuration("PRESENTER_TOKEN_TTL", 12*time.Hour),
		StrictPresenter:   getEnvBool("LIVEPOLL_STRICT_PRESENTER", false),
		StrictRating:      getEnvBool("LIVEPOLL_STRICT_RATING", false),
		RatingMin:         getEnvFloat("LIVEPOLL_RATING_MIN", 1),
		RatingMax:         getEnvFloat("LIVEPOLL_RATING_MAX", 5),

		SeedFile:           os.Getenv("SEED_FILE"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		WSMaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 4096)),
		WSSendBuffer:     getEnvInt("WS_SEND_BUFFER", 256),
		DispatchQueue:    getEnvInt("WS_DISPATCH_QUEUE", 1024),
		CodeTTL:          getEnvDuration("SESSION_CODE_TTL", 24*time.Hour),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// UsesDefaultSecret reports whether tokens would be signed with the built-in secret
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid integer, using default")
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid number, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid boolean, using default")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid duration, using default")
	}
	return defaultVal
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
