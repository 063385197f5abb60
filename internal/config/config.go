package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when HOTELBOOK_CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

type Config struct {
	HTTP struct {
		Address                string `yaml:"address"`
		ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		EventsChannel   string `yaml:"events_channel"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking BookingConfig `yaml:"booking"`

	Notify NotifyConfig `yaml:"notify"`

	Reminders struct {
		Enabled              bool   `yaml:"enabled"`
		Timezone             string `yaml:"timezone"`
		DailyHour            int    `yaml:"daily_hour"`
		DailyMinute          int    `yaml:"daily_minute"`
		CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	} `yaml:"reminders"`

	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Catalog struct {
		Path                 string `yaml:"path"`
		WatchIntervalSeconds int    `yaml:"watch_interval_seconds"`
	} `yaml:"catalog"`

	Events struct {
		SubscriberBuffer int `yaml:"subscriber_buffer"`
		QueueSize        int `yaml:"queue_size"`
	} `yaml:"events"`
}

// BackupConfig controls the periodic SQLite snapshot.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// BookingConfig holds guest-facing booking rules.
type BookingConfig struct {
	MaxStayNights      int `yaml:"max_stay_nights"`
	MaxAdvanceDays     int `yaml:"max_advance_days"`
	PendingExpiryHours int `yaml:"pending_expiry_hours"`
	CalendarMaxDays    int `yaml:"calendar_max_days"`
}

// NotifyConfig configures outbound notifications.
type NotifyConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
	QueueSize      int     `yaml:"queue_size"`
	StaffEmail     string  `yaml:"staff_email"`

	Webhook struct {
		URL string `yaml:"url"`
	} `yaml:"webhook"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Load reads the YAML config at path (or DefaultPath) after loading an optional .env file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("HOTELBOOK_CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		c.HTTP.ReadTimeoutSeconds = 15
	}
	if c.HTTP.ShutdownTimeoutSeconds <= 0 {
		c.HTTP.ShutdownTimeoutSeconds = 5
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/hotelbook.db"
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 14
	}
	if c.Redis.CacheTTLSeconds <= 0 {
		c.Redis.CacheTTLSeconds = 60
	}
	if c.Redis.EventsChannel == "" {
		c.Redis.EventsChannel = "hotelbook:events"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Booking.MaxStayNights <= 0 {
		c.Booking.MaxStayNights = 30
	}
	if c.Booking.MaxAdvanceDays <= 0 {
		c.Booking.MaxAdvanceDays = 365
	}
	if c.Booking.PendingExpiryHours <= 0 {
		c.Booking.PendingExpiryHours = 24
	}
	if c.Booking.CalendarMaxDays <= 0 {
		c.Booking.CalendarMaxDays = 90
	}
	if c.Notify.TimeoutSeconds <= 0 {
		c.Notify.TimeoutSeconds = 10
	}
	if c.Notify.MaxRetries < 0 {
		c.Notify.MaxRetries = 0
	}
	if c.Notify.RatePerSecond <= 0 {
		c.Notify.RatePerSecond = 5
	}
	if c.Notify.Burst <= 0 {
		c.Notify.Burst = 10
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 256
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Reminders.Timezone == "" {
		c.Reminders.Timezone = "UTC"
	}
	if c.Reminders.DailyHour == 0 && c.Reminders.DailyMinute == 0 {
		c.Reminders.DailyHour = 9
	}
	if c.Reminders.CheckIntervalSeconds <= 0 {
		c.Reminders.CheckIntervalSeconds = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/room_types.yaml"
	}
	if c.Catalog.WatchIntervalSeconds <= 0 {
		c.Catalog.WatchIntervalSeconds = 30
	}
	if c.Events.SubscriberBuffer <= 0 {
		c.Events.SubscriberBuffer = 64
	}
	if c.Events.QueueSize <= 0 {
		c.Events.QueueSize = 1024
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.TimeoutSeconds) * time.Second
}

func (c *Config) PendingExpiry() time.Duration {
	return time.Duration(c.Booking.PendingExpiryHours) * time.Hour
}

func (c *Config) CatalogWatchInterval() time.Duration {
	return time.Duration(c.Catalog.WatchIntervalSeconds) * time.Second
}
