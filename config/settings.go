package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Settings holds every runtime option the API and the digest runner read.
type Settings struct {
	ServerPort  string
	GinMode     string
	Environment string
	LogFile     string

	DBHost        string
	DBPort        string
	DBDatabase    string
	DBUsername    string
	DBPassword    string
	DBReplicaHost string
	DebugSQL      bool

	JWTSecret       string
	InternalKeyHash string

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPass          string
	SMTPFrom          string
	SMTPSkipTLSVerify bool

	AppBaseURL     string
	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURI      string
	AMQPExchange string

	DigestTick   time.Duration
	PushTimeout  time.Duration
	EmailTimeout time.Duration
}

// Current is the settings snapshot taken by the last call to Load.
var Current *Settings

// Load reads .env (when present) and the process environment into Settings.
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_FILE", "logs/taskboard-api.log")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("AMQP_EXCHANGE", "taskboard.activity")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("DIGEST_TICK", "30m")
	v.SetDefault("PUSH_TIMEOUT", "3s")
	v.SetDefault("EMAIL_TIMEOUT", "10s")

	s := &Settings{
		ServerPort:  v.GetString("SERVER_PORT"),
		GinMode:     v.GetString("GIN_MODE"),
		Environment: strings.ToLower(v.GetString("ENVIRONMENT")),
		LogFile:     v.GetString("LOG_FILE"),

		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBDatabase:    v.GetString("DB_DATABASE"),
		DBUsername:    v.GetString("DB_USERNAME"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DBReplicaHost: v.GetString("DB_REPLICA_HOST"),
		DebugSQL:      v.GetBool("DEBUG_SQL"),

		JWTSecret:       v.GetString("JWT_SECRET"),
		InternalKeyHash: v.GetString("INTERNAL_KEY_HASH"),

		SMTPHost:          v.GetString("SMTP_HOST"),
		SMTPPort:          v.GetInt("SMTP_PORT"),
		SMTPUser:          v.GetString("SMTP_USER"),
		SMTPPass:          v.GetString("SMTP_PASS"),
		SMTPFrom:          v.GetString("SMTP_FROM"),
		SMTPSkipTLSVerify: v.GetBool("SMTP_SKIP_TLS_VERIFY"),

		AppBaseURL:     v.GetString("APP_BASE_URL"),
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		AMQPURI:      v.GetString("AMQP_URI"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),

		DigestTick:   v.GetDuration("DIGEST_TICK"),
		PushTimeout:  v.GetDuration("PUSH_TIMEOUT"),
		EmailTimeout: v.GetDuration("EMAIL_TIMEOUT"),
	}

	Current = s
	return s
}

// IsProduction reports whether ENVIRONMENT is "production".
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
