package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateSecret  string
}

type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

type Media struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type Rabbit struct {
	URL         string
	Exchange    string
	Queue       string
	BindKey     string
	Concurrency int
}

// Config is built once in main and passed down explicitly; nothing reads
// the environment after startup.
type Config struct {
	Port           string
	Prod           bool
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	TokenTTLDays   int
	RedisAddr      string
	AuthRatePerMin int
	PostsPerHour   int
	ClientURL      string
	SuccessURL     string
	Google         Google
	SMTP           SMTP
	Media          Media
	Rabbit         Rabbit
	TracingEnabled bool
}

func Load() Config {
	// .env is optional; deployments use the environment directly.
	_ = godotenv.Load()

	return Config{
		Port:           getenv("APP_PORT", "8080"),
		Prod:           getenv("APP_ENV", "dev") == "prod",
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGO_DB", "healthlink"),
		JWTSecret:      getenv("JWT_SECRET", "default_secret_key"),
		TokenTTLDays:   atoi(getenv("TOKEN_TTL_DAYS", "7")),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		AuthRatePerMin: atoi(getenv("AUTH_RATE_PER_MIN", "20")),
		PostsPerHour:   atoi(getenv("POSTS_PER_HOUR", "10")),
		ClientURL:      getenv("CLIENT_URL", "http://localhost:3000"),
		SuccessURL:     getenv("SUCCESS_URL", "http://localhost:3000"),
		Google: Google{
			ClientID:     getenv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getenv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
			StateSecret:  getenv("OAUTH_STATE_SECRET", "state_secret"),
		},
		SMTP: SMTP{
			Host: getenv("SMTP_HOST", "localhost"),
			Port: getenv("SMTP_PORT", "587"),
			User: getenv("SMTP_USER", ""),
			Pass: getenv("SMTP_PASS", ""),
			From: getenv("SMTP_FROM", "no-reply@healthlink.app"),
		},
		Media: Media{
			Endpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getenv("MINIO_BUCKET", "media"),
			UseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
			PublicURL: getenv("MINIO_PUBLIC_URL", "http://localhost:9000"),
		},
		Rabbit: Rabbit{
			URL:         getenv("RABBIT_URL", ""),
			Exchange:    getenv("RABBIT_EXCHANGE", "health.events"),
			Queue:       getenv("RABBIT_QUEUE", "notifyq"),
			BindKey:     getenv("RABBIT_BIND_KEY", "user.*"),
			Concurrency: atoi(getenv("RABBIT_CONCURRENCY", "4")),
		},
		TracingEnabled: getenv("DD_ENABLED", "false") == "true",
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
