package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	SMSDisabled      bool

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCurrency      string

	RateLimitPerMinute      int
	RateLimitBurst          int
	PhoneRateLimitPerMinute int
	PhoneRateLimitBurst     int
}

func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "usd"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		SMSDisabled:      readBool("SMS_DISABLED", false),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeSuccessURL:    os.Getenv("STRIPE_SUCCESS_URL"),
		StripeCurrency:      currency,

		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		PhoneRateLimitPerMinute: readInt("PHONE_RATE_LIMIT_PER_MIN", 30),
		PhoneRateLimitBurst:     readInt("PHONE_RATE_LIMIT_BURST", 10),
	}
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
