// Package config provides configuration parsing and validation for the
// alert pipeline. All settings come from environment variables; the loaded
// Config is constructed once at startup and injected into every component.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"telemon/internal/events"
)

// Config holds all configuration parameters for the alert pipeline.
type Config struct {
	Enabled     bool   `env:"MONITORING_ENABLED" env-default:"true"`
	Environment string `env:"MONITORING_ENV" env-default:"development"`

	// Telegram delivery.
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
	TelegramThreadID int    `env:"TELEGRAM_THREAD_ID"`

	// Optional generic webhook delivery, used when Telegram is not configured.
	WebhookURL string `env:"ALERT_WEBHOOK_URL"`

	// Alert suppression. The rate-limit ceiling counts distinct deliveries
	// allowed per fingerprint inside one dedup window.
	AlertRateLimitMinutes int `env:"ALERT_RATE_LIMIT_MINUTES" env-default:"10"`
	RateLimitMaxPerWindow int `env:"ALERT_RATE_LIMIT_MAX_PER_WINDOW" env-default:"5"`
	MaxMessageLength      int `env:"ALERT_MAX_MESSAGE_LENGTH" env-default:"4000"`

	// Batching of non-critical alerts.
	BatchWindowMinutes int `env:"BATCH_WINDOW_MINUTES" env-default:"15"`
	BatchMaxAlerts     int `env:"BATCH_MAX_ALERTS" env-default:"10"`

	// Per-level routing enablement.
	RouteCritical bool `env:"ROUTE_CRITICAL_ENABLED" env-default:"true"`
	RouteWarning  bool `env:"ROUTE_WARNING_ENABLED" env-default:"true"`
	RouteInfo     bool `env:"ROUTE_INFO_ENABLED" env-default:"true"`

	// Ignore lists.
	IgnoredExceptions []string `env:"IGNORED_EXCEPTIONS" env-separator:"," env-default:"HTTPException,RequestValidationError"`
	IgnoredPaths      []string `env:"IGNORED_PATHS" env-separator:"," env-default:"/health,/metrics,/static,/docs"`
	IgnoredTasks      []string `env:"IGNORED_TASKS" env-separator:"," env-default:"mark_job_completed"`

	// Producer thresholds, recognized so one env surface covers the whole
	// monitoring setup even though enforcement happens in the host app.
	SlowRequestThreshold time.Duration `env:"SLOW_REQUEST_THRESHOLD" env-default:"3s"`
	SlowTaskThreshold    time.Duration `env:"SLOW_TASK_THRESHOLD" env-default:"60s"`

	// Shared state store.
	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisKeyPrefix   string        `env:"REDIS_KEY_PREFIX" env-default:"monitoring"`
	RedisKeyTTLHours int           `env:"REDIS_KEY_TTL_HOURS" env-default:"24"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" env-default:"2s"`

	// External call timeouts.
	DeliveryTimeout    time.Duration `env:"DELIVERY_TIMEOUT" env-default:"30s"`
	StatsTimeout       time.Duration `env:"STATS_TIMEOUT" env-default:"5s"`
	HealthRedisTimeout time.Duration `env:"HEALTH_REDIS_TIMEOUT" env-default:"3s"`

	// Daily report.
	DailyReportEnabled bool `env:"DAILY_REPORT_ENABLED" env-default:"true"`
	DailyReportHour    int  `env:"DAILY_REPORT_HOUR" env-default:"9"`
	DailyReportMinute  int  `env:"DAILY_REPORT_MINUTE" env-default:"0"`

	// Queue health.
	QueueKey          string `env:"QUEUE_KEY" env-default:"arq:queue"`
	QueueLastJobKey   string `env:"QUEUE_LAST_JOB_KEY" env-default:"arq:last_job"`
	QueueStuckMinutes int    `env:"HEALTH_QUEUE_STUCK_MINUTES" env-default:"10"`

	// Event ingestion.
	KafkaBrokers    string `env:"KAFKA_BROKERS"`
	EventsTopic     string `env:"EVENTS_TOPIC" env-default:"monitoring.events"`
	ConsumerGroupID string `env:"CONSUMER_GROUP_ID" env-default:"alertd-group"`

	// Statistics source.
	PostgresDSN string `env:"POSTGRES_DSN"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that all configuration fields have valid values.
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.AlertRateLimitMinutes <= 0 {
		return fmt.Errorf("alert rate limit minutes must be > 0")
	}
	if c.RateLimitMaxPerWindow <= 0 {
		return fmt.Errorf("rate limit max per window must be > 0")
	}
	if c.BatchWindowMinutes <= 0 {
		return fmt.Errorf("batch window minutes must be > 0")
	}
	if c.BatchMaxAlerts <= 0 {
		return fmt.Errorf("batch max alerts must be > 0")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("max message length must be > 0")
	}
	if c.DailyReportHour < 0 || c.DailyReportHour > 23 {
		return fmt.Errorf("daily report hour must be in [0, 23]")
	}
	if c.DailyReportMinute < 0 || c.DailyReportMinute > 59 {
		return fmt.Errorf("daily report minute must be in [0, 59]")
	}
	if c.RedisKeyPrefix == "" {
		return fmt.Errorf("redis key prefix cannot be empty")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be > 0")
	}
	return nil
}

// DedupWindow is how long repeats of a delivered fingerprint stay suppressed.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.AlertRateLimitMinutes) * time.Minute
}

// BatchWindow is the accumulation period for non-critical alerts.
func (c *Config) BatchWindow() time.Duration {
	return time.Duration(c.BatchWindowMinutes) * time.Minute
}

// DefaultTTL is the fallback expiry for monitoring keys in the store.
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.RedisKeyTTLHours) * time.Hour
}

// QueueStuckThreshold is how long without a processed job before the queue
// is reported as stuck.
func (c *Config) QueueStuckThreshold() time.Duration {
	return time.Duration(c.QueueStuckMinutes) * time.Minute
}

// LevelEnabled reports whether routing is enabled for the given level.
func (c *Config) LevelEnabled(level events.AlertLevel) bool {
	if !c.Enabled {
		return false
	}
	switch level {
	case events.LevelCritical:
		return c.RouteCritical
	case events.LevelWarning:
		return c.RouteWarning
	case events.LevelInfo:
		return c.RouteInfo
	}
	return false
}

// ShouldMonitorException reports whether the exception type is monitored.
func (c *Config) ShouldMonitorException(excType string) bool {
	for _, ignored := range c.IgnoredExceptions {
		if excType == ignored {
			return false
		}
	}
	return true
}

// ShouldMonitorPath reports whether the URL path is monitored. Paths are
// matched by prefix, mirroring how health and static routes are excluded.
func (c *Config) ShouldMonitorPath(path string) bool {
	for _, ignored := range c.IgnoredPaths {
		if strings.HasPrefix(path, ignored) {
			return false
		}
	}
	return true
}

// ShouldMonitorTask reports whether the background task is monitored.
func (c *Config) ShouldMonitorTask(taskName string) bool {
	for _, ignored := range c.IgnoredTasks {
		if taskName == ignored {
			return false
		}
	}
	return true
}

// TelegramConfigured reports whether Telegram delivery is fully configured.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}
