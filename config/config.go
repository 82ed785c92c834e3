package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	API      APIConfig      `yaml:"api"`
	Agent    AgentConfig    `yaml:"agent"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	CheckInRecordedTopicName string `yaml:"checkin_recorded_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type APIConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	EventCacheTTLSeconds int `yaml:"event_cache_ttl_seconds"`
	RateLimitPerMinute   int `yaml:"rate_limit_per_minute"`
}

type AgentConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	OutboxPath string `yaml:"outbox_path"`

	PortalBaseURL string `yaml:"portal_base_url"`
	PortalToken   string `yaml:"portal_token"`
	// "http" | "fake". Fake ходит в память, для локальной разработки.
	PortalMode string `yaml:"portal_mode"`

	UserID string `yaml:"user_id"`

	ProbeURL             string `yaml:"probe_url"`
	ProbeIntervalSeconds int    `yaml:"probe_interval_seconds"`

	SyncIntervalSeconds int `yaml:"sync_interval_seconds"`
	RetentionDays       int `yaml:"retention_days"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
