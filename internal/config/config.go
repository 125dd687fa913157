package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	MessageStore    string
	DatabaseURL     string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	SessionTTL      time.Duration
	AllowOrigins    []string
	LogstashTCPAddr string
	LogLevel        string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool

	PasswordResetTTL       time.Duration
	PasswordResetOTPLength int
	AdminOTPTTL            time.Duration
	RelayOTPTTL            time.Duration
	RelayRequestTTL        time.Duration

	RedisAddr       string
	RedisPassword   string
	OTPWindow       time.Duration
	OTPMaxPerWindow int
	OTPCooldown     time.Duration

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinIOBucketArchive string
	MinIOPublicURL     string

	ElasticsearchURL string
	RelayLogIndex    string

	SeedDefaults    bool
	SeedAdminEmail  string
	SeedAdminPass   string
	SeedCashierMail string
	SeedCashierPass string
	SeedCashierID   string
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	return fromEnv()
}

func fromEnv() Config {
	store := strings.ToLower(getenv("MESSAGE_STORE", StorePostgres))
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		MessageStore:    store,
		DatabaseURL:     getenv("DATABASE_URL", ""),
		MongoURI:        getenv("MONGO_URI", ""),
		MongoDB:         getenv("MONGO_DB", "pos"),
		JWTSecret:       must("JWT_SECRET"),
		SessionTTL:      duration("SESSION_TTL", 24*time.Hour),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),
		LogLevel:        getenv("LOG_LEVEL", "info"),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPUseTLS:   getenv("SMTP_USE_TLS", "false") == "true",

		PasswordResetTTL:       duration("PASSWORD_RESET_TTL", 10*time.Minute),
		PasswordResetOTPLength: positiveInt("PASSWORD_RESET_OTP_LENGTH", 6),
		AdminOTPTTL:            duration("ADMIN_OTP_TTL", 5*time.Minute),
		RelayOTPTTL:            duration("RELAY_OTP_TTL", 5*time.Minute),
		RelayRequestTTL:        duration("RELAY_REQUEST_TTL", 5*time.Minute),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		OTPWindow:       duration("OTP_WINDOW", 15*time.Minute),
		OTPMaxPerWindow: positiveInt("OTP_MAX_PER_WINDOW", 5),
		OTPCooldown:     duration("OTP_COOLDOWN", 30*time.Second),

		MinIOEndpoint:      getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketArchive: getenv("MINIO_BUCKET_ARCHIVE", "pos-relay-archive"),
		MinIOPublicURL:     getenv("MINIO_PUBLIC_URL", ""),

		ElasticsearchURL: getenv("ELASTICSEARCH_URL", ""),
		RelayLogIndex:    getenv("RELAY_LOG_INDEX", "pos-relay-*"),

		SeedDefaults:    getenv("SEED_DEFAULTS", "false") == "true",
		SeedAdminEmail:  getenv("SEED_ADMIN_EMAIL", "admin@pos.local"),
		SeedAdminPass:   getenv("SEED_ADMIN_PASSWORD", ""),
		SeedCashierMail: getenv("SEED_CASHIER_EMAIL", "cashier@pos.local"),
		SeedCashierPass: getenv("SEED_CASHIER_PASSWORD", ""),
		SeedCashierID:   getenv("SEED_CASHIER_ID", "CS001"),
	}

	switch store {
	case StorePostgres:
		cfg.DatabaseURL = must("DATABASE_URL")
	case StoreMongo:
		cfg.MongoURI = must("MONGO_URI")
	case StoreMemory:
	default:
		panic("unsupported MESSAGE_STORE: " + store)
	}
	return cfg
}

func (c Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPPort != "" && c.SMTPFrom != ""
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func duration(k string, d time.Duration) time.Duration {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s=%q, using %s", k, raw, d)
		return d
	}
	return v
}

func positiveInt(k string, d int) int {
	if v, err := strconv.Atoi(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
