package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	PracticeID   string
	PracticeName string

	// Scheduling defaults. Per-practice overrides live in Redis (internal/settings).
	PracticeTimezone  string
	WorkingHoursStart string
	WorkingHoursEnd   string
	SlotGranularity   time.Duration

	// Notification channel switches
	SMSOnBooking         bool
	SMSOnCancellation    bool
	SMSOnReschedule      bool
	SMSReminders         bool
	CalendarSyncEnabled  bool
	InvoiceEmailEnabled  bool
	NotifyChannelTimeout time.Duration
	ReminderLeadTime     time.Duration
	ReminderPollInterval time.Duration
	LowStockAlertEmail   string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	CalendarSyncQueueURL string
	SESFromEmail         string

	// SendGrid is used for email when set; SES otherwise
	SendGridAPIKey    string
	SendGridFromEmail string
	EmailFromName     string

	AuthJWTSecret      string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		PracticeID:   getEnv("PRACTICE_ID", "default"),
		PracticeName: getEnv("PRACTICE_NAME", "MedSpa Practice"),

		PracticeTimezone:  getEnv("PRACTICE_TIMEZONE", "UTC"),
		WorkingHoursStart: getEnv("WORKING_HOURS_START", "08:00"),
		WorkingHoursEnd:   getEnv("WORKING_HOURS_END", "20:00"),
		SlotGranularity:   getEnvAsDuration("SLOT_GRANULARITY", 15*time.Minute),

		SMSOnBooking:         getEnvAsBool("SMS_ON_BOOKING", true),
		SMSOnCancellation:    getEnvAsBool("SMS_ON_CANCELLATION", true),
		SMSOnReschedule:      getEnvAsBool("SMS_ON_RESCHEDULE", true),
		SMSReminders:         getEnvAsBool("SMS_REMINDERS", true),
		CalendarSyncEnabled:  getEnvAsBool("CALENDAR_SYNC_ENABLED", true),
		InvoiceEmailEnabled:  getEnvAsBool("INVOICE_EMAIL_ENABLED", true),
		NotifyChannelTimeout: getEnvAsDuration("NOTIFY_CHANNEL_TIMEOUT", 10*time.Second),
		ReminderLeadTime:     getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),
		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Minute),
		LowStockAlertEmail:   getEnv("LOW_STOCK_ALERT_EMAIL", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		CalendarSyncQueueURL: getEnv("CALENDAR_SYNC_QUEUE_URL", ""),
		SESFromEmail:         getEnv("SES_FROM_EMAIL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "MedSpa Practice"),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
