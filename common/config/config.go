package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds the Postgres connection settings for the alarm registry.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig holds the Redis connection settings (intake ledger, fired-alarm stream).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds the broker settings used to push reminders and alerts.
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string
}

// HTTPClientConfig holds settings shared by outbound REST clients.
type HTTPClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// GetDSN builds a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv overrides fields from <prefix>_HOST, <prefix>_PORT, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		c.Port = atoiOr(port, c.Port)
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		c.MaxConns = atoiOr(maxConns, c.MaxConns)
	}
}

// LoadFromEnv overrides fields from <prefix>_ADDR, <prefix>_PASSWORD, <prefix>_DB.
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		c.DB = atoiOr(db, c.DB)
	}
}

// LoadFromEnv overrides fields from <prefix>_BROKER, <prefix>_CLIENT_ID, ...
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if enabled := os.Getenv(prefix + "_ENABLED"); enabled != "" {
		c.Enabled = enabled == "true"
	}
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if qos := os.Getenv(prefix + "_QOS"); qos != "" {
		c.QoS = byte(atoiOr(qos, int(c.QoS)))
	}
	if topicPrefix := os.Getenv(prefix + "_TOPIC_PREFIX"); topicPrefix != "" {
		c.TopicPrefix = topicPrefix
	}
}

// LoadFromEnv overrides fields from <prefix>_BASE_URL, <prefix>_TIMEOUT_SECONDS,
// <prefix>_RETRY_COUNT.
func (c *HTTPClientConfig) LoadFromEnv(prefix string) {
	if baseURL := os.Getenv(prefix + "_BASE_URL"); baseURL != "" {
		c.BaseURL = baseURL
	}
	if timeout := os.Getenv(prefix + "_TIMEOUT_SECONDS"); timeout != "" {
		c.Timeout = time.Duration(atoiOr(timeout, int(c.Timeout/time.Second))) * time.Second
	}
	if retry := os.Getenv(prefix + "_RETRY_COUNT"); retry != "" {
		c.RetryCount = atoiOr(retry, c.RetryCount)
	}
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
