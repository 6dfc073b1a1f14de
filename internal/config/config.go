package config

import (
	"os"
	"strconv"
	"time"

	"healthguard/common/config"
)

// Config is shared by the reminder and caregiver services.
type Config struct {
	Backend  config.HTTPClientConfig
	Registry config.HTTPClientConfig
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	HTTP struct {
		Addr string
	}

	Session struct {
		// Token is the bearer token issued at login. PatientID/Role/SelfManagement
		// are read from its claims when Secret is set.
		Token          string
		Secret         string
		PatientID      int64
		Role           string
		SelfManagement bool
	}

	Reminder struct {
		ReloadInterval   time.Duration
		DispatchInterval time.Duration

		StreamName    string
		ConsumerGroup string
		ConsumerName  string

		ExactAlarmsPermitted bool
		WindowMinutes        int
		ToleranceMinutes     int
		DebounceSeconds      int
		SyncTimeout          time.Duration
		LedgerKeyPrefix      string
	}

	Caregiver struct {
		PollInterval   time.Duration
		ReportPath     string
		AlertTTL       time.Duration
		AlertKeyPrefix string
	}

	DesktopNotifications bool

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Backend = config.HTTPClientConfig{BaseURL: "http://localhost:8080", Timeout: 10 * time.Second, RetryCount: 2}
	cfg.Backend.LoadFromEnv("BACKEND")

	cfg.Registry = config.HTTPClientConfig{BaseURL: "https://cima.aemps.es/cima/rest", Timeout: 10 * time.Second, RetryCount: 1}
	cfg.Registry.LoadFromEnv("REGISTRY")

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "healthguard",
		SSLMode:  "disable",
		MaxConns: 5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{
		Broker:      "tcp://localhost:1883",
		ClientID:    "healthguard",
		QoS:         1,
		TopicPrefix: "healthguard",
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", "127.0.0.1:8095")

	cfg.Session.Token = getEnv("SESSION_TOKEN", "")
	cfg.Session.Secret = getEnv("SESSION_SECRET", "")
	cfg.Session.PatientID = int64(getEnvInt("SESSION_PATIENT_ID", 0))
	cfg.Session.Role = getEnv("SESSION_ROLE", "SENIOR")
	cfg.Session.SelfManagement = getEnv("SESSION_SELF_MANAGEMENT", "false") == "true"

	cfg.Reminder.ReloadInterval = getEnvSeconds("REMINDER_RELOAD_SECONDS", 900)
	cfg.Reminder.DispatchInterval = getEnvSeconds("REMINDER_DISPATCH_SECONDS", 15)
	cfg.Reminder.StreamName = getEnv("REMINDER_STREAM", "healthguard:alarms:fired")
	cfg.Reminder.ConsumerGroup = getEnv("REMINDER_CONSUMER_GROUP", "reminder")
	cfg.Reminder.ConsumerName = getEnv("REMINDER_CONSUMER_NAME", hostnameOr("reminder-1"))
	cfg.Reminder.ExactAlarmsPermitted = getEnv("REMINDER_EXACT_ALARMS", "true") == "true"
	cfg.Reminder.WindowMinutes = getEnvInt("REMINDER_WINDOW_MINUTES", 10)
	cfg.Reminder.ToleranceMinutes = getEnvInt("REMINDER_TOLERANCE_MINUTES", 5)
	cfg.Reminder.DebounceSeconds = getEnvInt("REMINDER_DEBOUNCE_SECONDS", 2)
	cfg.Reminder.SyncTimeout = getEnvSeconds("REMINDER_SYNC_TIMEOUT_SECONDS", 15)
	cfg.Reminder.LedgerKeyPrefix = getEnv("REMINDER_LEDGER_PREFIX", "intake:")

	cfg.Caregiver.PollInterval = getEnvSeconds("CAREGIVER_POLL_SECONDS", 60)
	cfg.Caregiver.ReportPath = getEnv("CAREGIVER_REPORT_PATH", "")
	cfg.Caregiver.AlertTTL = getEnvSeconds("CAREGIVER_ALERT_TTL_SECONDS", 6*3600)
	cfg.Caregiver.AlertKeyPrefix = getEnv("CAREGIVER_ALERT_PREFIX", "caregiver:alert:")

	cfg.DesktopNotifications = getEnv("DESKTOP_NOTIFICATIONS", "false") == "true"

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

func hostnameOr(def string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return def
}
