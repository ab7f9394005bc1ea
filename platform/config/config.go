// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides queue backend connection settings.
type RedisConfig interface {
	GetRedisURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// DispatchConfig provides settings for the priority job dispatcher.
type DispatchConfig interface {
	RedisConfig
	GetDomainConcurrency(domain string) int
	GetRetryBaseDelay() time.Duration
	GetCompletedRetention() time.Duration
}

// ScheduleConfig provides settings for the recurring scheduler.
type ScheduleConfig interface {
	GetScheduleLocation() *time.Location
	GetSequenceSweepCron() string
	GetSLAScanCron() string
	GetWebhookReplayCron() string
	GetDailyRollupCron() string
}

// MailConfig provides settings for the SMTP email transport.
type MailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMSConfig provides settings for the SMS transport.
type SMSConfig interface {
	GetSMSAPIURL() string
	GetSMSAPIKey() string
	GetSMSFromNumber() string
	IsSMSEnabled() bool
}

// ChatConfig provides settings for the chat-notification transport.
type ChatConfig interface {
	GetChatWebhookURL() string
	GetChatAPIKey() string
	IsChatEnabled() bool
}

// WebhookConfig provides settings for inbound webhook authentication.
type WebhookConfig interface {
	GetWebhookSecret(source string) string
	GetFormAPIKey() string
	GetWebhookMaxRetries() int
	GetWebhookTimestampWindow() time.Duration
}

// CRMConfig provides settings for the outbound CRM sync client.
type CRMConfig interface {
	GetCRMSyncURL() string
	GetCRMSyncSecret() string
	IsCRMSyncEnabled() bool
}

// SLAConfig provides settings for the response-time monitor.
type SLAConfig interface {
	GetSLAResponseThreshold() time.Duration
	GetSLACriticalThreshold() time.Duration
	GetSLAWindow() time.Duration
}

// IntakeConfig provides settings for lead intake.
type IntakeConfig interface {
	GetDedupWindow() time.Duration
	GetEscalationRecipients() []string
	GetEscalationPhones() []string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string

	CORSAllowAll bool
	CORSOrigins  []string

	ResponseConcurrency     int
	NotificationConcurrency int
	SyncConcurrency         int
	AnalyticsConcurrency    int
	RetryBaseDelay          time.Duration
	CompletedRetention      time.Duration

	ScheduleLocation  *time.Location
	SequenceSweepCron string
	SLAScanCron       string
	WebhookReplayCron string
	DailyRollupCron   string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	SMSAPIURL     string
	SMSAPIKey     string
	SMSFromNumber string

	ChatWebhookURL string
	ChatAPIKey     string

	WebhookSecrets         map[string]string
	FormAPIKey             string
	WebhookMaxRetries      int
	WebhookTimestampWindow time.Duration

	CRMSyncURL    string
	CRMSyncSecret string

	SLAResponseThreshold time.Duration
	SLACriticalThreshold time.Duration
	SLAWindow            time.Duration

	DedupWindow          time.Duration
	EscalationRecipients []string
	EscalationPhones     []string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetRedisURL() string    { return c.RedisURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// GetDomainConcurrency returns the worker concurrency for a dispatch domain.
// The response domain carries the highest concurrency, matching its urgency.
func (c *Config) GetDomainConcurrency(domain string) int {
	switch domain {
	case "response":
		return c.ResponseConcurrency
	case "notification":
		return c.NotificationConcurrency
	case "sync":
		return c.SyncConcurrency
	case "analytics":
		return c.AnalyticsConcurrency
	default:
		return 1
	}
}

func (c *Config) GetRetryBaseDelay() time.Duration     { return c.RetryBaseDelay }
func (c *Config) GetCompletedRetention() time.Duration { return c.CompletedRetention }

func (c *Config) GetScheduleLocation() *time.Location { return c.ScheduleLocation }
func (c *Config) GetSequenceSweepCron() string        { return c.SequenceSweepCron }
func (c *Config) GetSLAScanCron() string              { return c.SLAScanCron }
func (c *Config) GetWebhookReplayCron() string        { return c.WebhookReplayCron }
func (c *Config) GetDailyRollupCron() string          { return c.DailyRollupCron }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetSMSAPIURL() string     { return c.SMSAPIURL }
func (c *Config) GetSMSAPIKey() string     { return c.SMSAPIKey }
func (c *Config) GetSMSFromNumber() string { return c.SMSFromNumber }
func (c *Config) IsSMSEnabled() bool       { return c.SMSAPIURL != "" }

func (c *Config) GetChatWebhookURL() string { return c.ChatWebhookURL }
func (c *Config) GetChatAPIKey() string     { return c.ChatAPIKey }
func (c *Config) IsChatEnabled() bool       { return c.ChatWebhookURL != "" }

// GetWebhookSecret returns the signing secret for a webhook source,
// falling back to the "default" entry when the source has no dedicated key.
func (c *Config) GetWebhookSecret(source string) string {
	if secret, ok := c.WebhookSecrets[source]; ok {
		return secret
	}
	return c.WebhookSecrets["default"]
}

func (c *Config) GetFormAPIKey() string                     { return c.FormAPIKey }
func (c *Config) GetWebhookMaxRetries() int                 { return c.WebhookMaxRetries }
func (c *Config) GetWebhookTimestampWindow() time.Duration  { return c.WebhookTimestampWindow }

func (c *Config) GetCRMSyncURL() string    { return c.CRMSyncURL }
func (c *Config) GetCRMSyncSecret() string { return c.CRMSyncSecret }
func (c *Config) IsCRMSyncEnabled() bool   { return c.CRMSyncURL != "" }

func (c *Config) GetSLAResponseThreshold() time.Duration { return c.SLAResponseThreshold }
func (c *Config) GetSLACriticalThreshold() time.Duration { return c.SLACriticalThreshold }
func (c *Config) GetSLAWindow() time.Duration            { return c.SLAWindow }

func (c *Config) GetDedupWindow() time.Duration      { return c.DedupWindow }
func (c *Config) GetEscalationRecipients() []string  { return c.EscalationRecipients }
func (c *Config) GetEscalationPhones() []string      { return c.EscalationPhones }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("SCHEDULE_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		CORSAllowAll: strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),

		ResponseConcurrency:     mustInt(getEnv("RESPONSE_CONCURRENCY", "20")),
		NotificationConcurrency: mustInt(getEnv("NOTIFICATION_CONCURRENCY", "10")),
		SyncConcurrency:         mustInt(getEnv("SYNC_CONCURRENCY", "5")),
		AnalyticsConcurrency:    mustInt(getEnv("ANALYTICS_CONCURRENCY", "2")),
		RetryBaseDelay:          mustDuration(getEnv("RETRY_BASE_DELAY", "30s")),
		CompletedRetention:      mustDuration(getEnv("COMPLETED_RETENTION", "24h")),

		ScheduleLocation:  loc,
		SequenceSweepCron: getEnv("SEQUENCE_SWEEP_CRON", "*/5 * * * *"),
		SLAScanCron:       getEnv("SLA_SCAN_CRON", "*/15 * * * *"),
		WebhookReplayCron: getEnv("WEBHOOK_REPLAY_CRON", "0 * * * *"),
		DailyRollupCron:   getEnv("DAILY_ROLLUP_CRON", "0 2 * * *"),

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "LeadFlow"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		SMSAPIURL:     getEnv("SMS_API_URL", ""),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),

		ChatWebhookURL: getEnv("CHAT_WEBHOOK_URL", ""),
		ChatAPIKey:     getEnv("CHAT_API_KEY", ""),

		WebhookSecrets:         parseKeyValueCSV(getEnv("WEBHOOK_SIGNING_SECRETS", "")),
		FormAPIKey:             getEnv("FORM_API_KEY", ""),
		WebhookMaxRetries:      mustInt(getEnv("WEBHOOK_MAX_RETRIES", "5")),
		WebhookTimestampWindow: mustDuration(getEnv("WEBHOOK_TIMESTAMP_WINDOW", "5m")),

		CRMSyncURL:    getEnv("CRM_SYNC_URL", ""),
		CRMSyncSecret: getEnv("CRM_SYNC_SECRET", ""),

		SLAResponseThreshold: mustDuration(getEnv("SLA_RESPONSE_THRESHOLD", "5m")),
		SLACriticalThreshold: mustDuration(getEnv("SLA_CRITICAL_THRESHOLD", "10m")),
		SLAWindow:            mustDuration(getEnv("SLA_WINDOW", "24h")),

		DedupWindow:          mustDuration(getEnv("DEDUP_WINDOW", "24h")),
		EscalationRecipients: splitCSV(getEnv("ESCALATION_EMAILS", "")),
		EscalationPhones:     splitCSV(getEnv("ESCALATION_PHONES", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.EmailEnabled && cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED is true")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.SLACriticalThreshold <= cfg.SLAResponseThreshold {
		return nil, fmt.Errorf("SLA_CRITICAL_THRESHOLD must exceed SLA_RESPONSE_THRESHOLD")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

// parseKeyValueCSV parses "source=secret,other=secret2" pairs.
func parseKeyValueCSV(value string) map[string]string {
	result := map[string]string{}
	for _, part := range splitCSV(value) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && kv[0] != "" {
			result[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return result
}
