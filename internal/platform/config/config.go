package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the process needs from the environment. The core
// consumes the reminder thresholds and timezone; the rest wires collaborators.
type Config struct {
	Addr string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers      []string
	KafkaDirectTopic  string
	KafkaChannelTopic string

	JWTSigningKey string

	Timezone           string
	LegalReminderDays  int
	DevopsReminderDays int
	EscalationHours    int
	TickInterval       time.Duration
	NotifyTimeout      time.Duration

	OnboardingChannelID int64
	AdminIDs            []int64
	AllowedCreatorIDs   []int64

	DefaultLegalHandle  string
	DefaultDevopsHandle string
}

// FromEnv builds a Config from environment variables so main stays lean. A
// local .env file is honoured when present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:                getEnv("HIRETRACK_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaDirectTopic:    getEnv("KAFKA_DIRECT_TOPIC", "hiretrack.notify.direct"),
		KafkaChannelTopic:   getEnv("KAFKA_CHANNEL_TOPIC", "hiretrack.notify.channel"),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Timezone:            getEnv("TIMEZONE", "Europe/London"),
		DefaultLegalHandle:  os.Getenv("DEFAULT_LEGAL_HANDLE"),
		DefaultDevopsHandle: os.Getenv("DEFAULT_DEVOPS_HANDLE"),
	}

	var err error
	if cfg.LegalReminderDays, err = getEnvInt("LEGAL_REMINDER_DAYS", 3); err != nil {
		return Config{}, fmt.Errorf("LEGAL_REMINDER_DAYS: %w", err)
	}
	if cfg.DevopsReminderDays, err = getEnvInt("DEVOPS_REMINDER_DAYS", 1); err != nil {
		return Config{}, fmt.Errorf("DEVOPS_REMINDER_DAYS: %w", err)
	}
	if cfg.EscalationHours, err = getEnvInt("ESCALATION_HOURS", 24); err != nil {
		return Config{}, fmt.Errorf("ESCALATION_HOURS: %w", err)
	}
	tickMinutes, err := getEnvInt("SCHEDULER_INTERVAL_MINUTES", 30)
	if err != nil {
		return Config{}, fmt.Errorf("SCHEDULER_INTERVAL_MINUTES: %w", err)
	}
	cfg.TickInterval = time.Duration(tickMinutes) * time.Minute
	notifySeconds, err := getEnvInt("NOTIFY_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("NOTIFY_TIMEOUT_SECONDS: %w", err)
	}
	cfg.NotifyTimeout = time.Duration(notifySeconds) * time.Second

	if cfg.OnboardingChannelID, err = parseID(getEnv("ONBOARDING_CHANNEL_ID", "0")); err != nil {
		return Config{}, fmt.Errorf("ONBOARDING_CHANNEL_ID: %w", err)
	}
	if cfg.AdminIDs, err = parseIDList(os.Getenv("ADMIN_IDS")); err != nil {
		return Config{}, fmt.Errorf("ADMIN_IDS: %w", err)
	}
	if cfg.AllowedCreatorIDs, err = parseIDList(os.Getenv("ALLOWED_CREATORS")); err != nil {
		return Config{}, fmt.Errorf("ALLOWED_CREATORS: %w", err)
	}

	if cfg.LegalReminderDays < 0 || cfg.DevopsReminderDays < 0 || cfg.EscalationHours < 0 {
		return Config{}, fmt.Errorf("reminder thresholds must not be negative")
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("scheduler interval must be positive")
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func parseIDList(raw string) ([]int64, error) {
	var out []int64
	for _, part := range splitList(raw) {
		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
