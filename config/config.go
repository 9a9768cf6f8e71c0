package config

import (
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage.
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DatabaseName  string `mapstructure:"DATABASE_NAME"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Language model.
	GeminiAPIKey       string  `mapstructure:"GEMINI_API_KEY"`
	GeminiModel        string  `mapstructure:"GEMINI_MODEL"`
	LLMTemperature     float32 `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxOutputTokens int32   `mapstructure:"LLM_MAX_OUTPUT_TOKENS"`
	LLMTimeoutSeconds  int     `mapstructure:"LLM_TIMEOUT_SECONDS"`
	LLMMaxRetries      uint64  `mapstructure:"LLM_MAX_RETRIES"`

	// Conversation handling.
	ChatMaxToolRounds          int    `mapstructure:"CHAT_MAX_TOOL_ROUNDS"`
	ChatMaxContextTurns        int    `mapstructure:"CHAT_MAX_CONTEXT_TURNS"`
	ChatSessionTimeoutMinutes  int    `mapstructure:"CHAT_SESSION_TIMEOUT_MINUTES"`
	ChatSessionStaleHours      int    `mapstructure:"CHAT_SESSION_STALE_HOURS"`
	SessionLockMode            string `mapstructure:"SESSION_LOCK_MODE"`
	MessageDedupTTLMinutes     int    `mapstructure:"MESSAGE_DEDUP_TTL_MINUTES"`
	DefaultPhoneRegion         string `mapstructure:"DEFAULT_PHONE_REGION"`
	MessageLogRetentionDays    int    `mapstructure:"MESSAGE_LOG_RETENTION_DAYS"`
	NoShowBufferMinutes        int    `mapstructure:"NO_SHOW_BUFFER_MINUTES"`
	ReminderWindowMinutes      int    `mapstructure:"REMINDER_WINDOW_MINUTES"`
	DefaultReminderMinutesList string `mapstructure:"DEFAULT_REMINDER_MINUTES"`

	// WhatsApp Cloud API.
	WhatsAppVerifyToken   string `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAppSecret     string `mapstructure:"WHATSAPP_APP_SECRET"`
	WhatsAppAPIBase       string `mapstructure:"WHATSAPP_API_BASE"`
	WhatsAppEncryptionKey string `mapstructure:"WHATSAPP_ENCRYPTION_KEY"`

	// Stripe.
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency     string `mapstructure:"PAYMENT_CURRENCY"`
	PaymentSuccessURL   string `mapstructure:"PAYMENT_SUCCESS_URL"`
	PaymentCancelURL    string `mapstructure:"PAYMENT_CANCEL_URL"`

	// Kafka domain events.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()
	// REDIS_ADDR= must be able to switch Redis off.
	viper.AllowEmptyEnv(true)

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "salondesk")
	viper.SetDefault("STORAGE_DRIVER", "mongo")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)

	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("LLM_TEMPERATURE", 0.7)
	viper.SetDefault("LLM_MAX_OUTPUT_TOKENS", 500)
	viper.SetDefault("LLM_TIMEOUT_SECONDS", 30)
	viper.SetDefault("LLM_MAX_RETRIES", 2)

	viper.SetDefault("CHAT_MAX_TOOL_ROUNDS", 5)
	viper.SetDefault("CHAT_MAX_CONTEXT_TURNS", 20)
	viper.SetDefault("CHAT_SESSION_TIMEOUT_MINUTES", 30)
	viper.SetDefault("CHAT_SESSION_STALE_HOURS", 24)
	viper.SetDefault("SESSION_LOCK_MODE", "local")
	viper.SetDefault("MESSAGE_DEDUP_TTL_MINUTES", 60)
	viper.SetDefault("DEFAULT_PHONE_REGION", "IN")
	viper.SetDefault("MESSAGE_LOG_RETENTION_DAYS", 90)
	viper.SetDefault("NO_SHOW_BUFFER_MINUTES", 30)
	viper.SetDefault("REMINDER_WINDOW_MINUTES", 5)
	viper.SetDefault("DEFAULT_REMINDER_MINUTES", "1440,120")

	viper.SetDefault("WHATSAPP_VERIFY_TOKEN", "")
	viper.SetDefault("WHATSAPP_APP_SECRET", "")
	viper.SetDefault("WHATSAPP_API_BASE", "https://graph.facebook.com/v21.0")
	viper.SetDefault("WHATSAPP_ENCRYPTION_KEY", "")

	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("PAYMENT_CURRENCY", "inr")
	viper.SetDefault("PAYMENT_SUCCESS_URL", "https://example.com/payment/success")
	viper.SetDefault("PAYMENT_CANCEL_URL", "https://example.com/payment/cancel")

	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "appointment-events")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// KafkaBrokerList splits the comma separated broker list, dropping blanks.
func KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(AppConfig.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// DefaultReminderMinutes parses the comma separated reminder offsets, skipping
// entries that are not positive integers.
func DefaultReminderMinutes() []int {
	var out []int
	for _, raw := range strings.Split(AppConfig.DefaultReminderMinutesList, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}
