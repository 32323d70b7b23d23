package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"noizlabs/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool

	// Award guard limits
	AwardRateLimit  int
	AwardRateWindow time.Duration
	AuthRateLimit   int
	AuthRateWindow  time.Duration

	// Per wallet cap on category, clip and vote writes
	ContentRateLimit  int
	ContentRateWindow time.Duration

	// Object storage (S3 compatible, R2 works too)
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	CDNBaseURL        string

	JobSecret        string
	SchedulerEnabled bool
	AllowedOrigins   []string
}

// Load reads the config from env (and .env if present).
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		logger.Fatal("REDIS_ADDR is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	var origins []string
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,
		SessionTTL:  envSeconds("SESSION_TTL_SECONDS", 24*time.Hour),

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		LogLevel: envString("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",

		AwardRateLimit:  envInt("AWARD_RATE_LIMIT", 30),
		AwardRateWindow: envSeconds("AWARD_RATE_WINDOW_SECONDS", time.Minute),
		AuthRateLimit:   envInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:  envSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute),

		ContentRateLimit:  envInt("CONTENT_RATE_LIMIT", 60),
		ContentRateWindow: envSeconds("CONTENT_RATE_WINDOW_SECONDS", time.Minute),

		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          envString("S3_REGION", "auto"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		CDNBaseURL:        os.Getenv("CDN_BASE_URL"),

		JobSecret:        os.Getenv("JOB_SECRET"),
		SchedulerEnabled: os.Getenv("SCHEDULER_ENABLED") == "true",
		AllowedOrigins:   origins,
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
