package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	CRDBDSN      string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	RabbitURL    string
	OTLPEndpoint string

	JWTSecret string
	TokenTTL  time.Duration

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	Currency              string

	BaseRate        float64
	FlowTTL         time.Duration
	CatalogCacheTTL time.Duration
	IntentTTL       time.Duration

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration

	RateLimit   string
	CORSOrigins []string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	SupportEmail string

	LogLevel string
	LogFile  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      envOr("MONGO_DB", "storefront"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  durationOr("TOKEN_TTL", 24*time.Hour),

		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		Currency:              strings.ToUpper(envOr("PAYMENT_CURRENCY", "INR")),

		BaseRate:        floatOr("BASE_RATE", 2000),
		FlowTTL:         durationOr("FLOW_TTL", 30*time.Minute),
		CatalogCacheTTL: durationOr("CATALOG_CACHE_TTL", 5*time.Minute),
		IntentTTL:       durationOr("INTENT_TTL", 30*time.Minute),

		ReconcileInterval: durationOr("RECONCILE_INTERVAL", 30*time.Second),
		ReconcileGrace:    durationOr("RECONCILE_GRACE", time.Minute),

		RateLimit:   envOr("RATE_LIMIT", "100-M"),
		CORSOrigins: listOr("CORS_ORIGINS", []string{"http://localhost:5173"}),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     intOr("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     envOr("MAIL_FROM", "bookings@localhost"),
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	if d <= 0 {
		return fallback
	}
	return d
}

func floatOr(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func intOr(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func listOr(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
