package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

const (
	SourceKindHTML   = "html"
	SourceKindPortal = "portal"
	SourceKindFake   = "fake"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Berth    BerthConfig    `yaml:"berth"`
	Sources  []SourceConfig `yaml:"sources"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (c DatabaseConfig) DSN() string {
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.Username, c.Password, c.Host, c.Port, c.DBName, ssl)
}

type KafkaConfig struct {
	Host                      string `yaml:"host"`
	Port                      int    `yaml:"port"`
	DatasetRefreshedTopicName string `yaml:"dataset_refreshed_topic_name"`
}

func (c KafkaConfig) Broker() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type BerthConfig struct {
	HTTPAddr             string `yaml:"http_addr"`
	KafkaConsumerGroup   string `yaml:"kafka_consumer_group"`
	Timezone             string `yaml:"timezone"`
	BoardCacheTTLSeconds int    `yaml:"board_cache_ttl_seconds"`

	WorkerHTTPAddr               string `yaml:"worker_http_addr"`
	WorkerRefreshIntervalSeconds int    `yaml:"worker_refresh_interval_seconds"`
	WorkerRefreshOnStart         bool   `yaml:"worker_refresh_on_start"`
	WorkerTriggerLimitPerMinute  int    `yaml:"worker_trigger_limit_per_minute"`
}

// Location resolves Timezone; empty means Europe/Rome.
func (c BerthConfig) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = "Europe/Rome"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %s", tz)
	}
	return loc, nil
}

type SourceConfig struct {
	ID             string `yaml:"id"`
	Kind           string `yaml:"kind"` // "html" | "portal" | "fake"
	Label          string `yaml:"label"`
	URL            string `yaml:"url"`
	LoginURL       string `yaml:"login_url"`
	ExportURL      string `yaml:"export_url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	Delimiter      string `yaml:"delimiter"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// Columns overrides the built-in column rules of the source when set.
	Columns []ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Raw           string `yaml:"raw"`
	Field         string `yaml:"field"`
	AdjustMinutes int    `yaml:"adjust_minutes"`
}

func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// LoadConfig reads the YAML file, expanding ${VAR} references from the
// environment first.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			return errors.Errorf("sources[%d]: id is required", i)
		}
		if _, dup := seen[s.ID]; dup {
			return errors.Errorf("sources[%d]: duplicate id %s", i, s.ID)
		}
		seen[s.ID] = struct{}{}

		switch s.Kind {
		case SourceKindHTML:
			if s.URL == "" {
				return errors.Errorf("source %s: url is required", s.ID)
			}
		case SourceKindPortal:
			if s.LoginURL == "" || s.ExportURL == "" {
				return errors.Errorf("source %s: login_url and export_url are required", s.ID)
			}
		case SourceKindFake:
		default:
			return errors.Errorf("source %s: unknown kind %q", s.ID, s.Kind)
		}
		if len([]rune(s.Delimiter)) > 1 {
			return errors.Errorf("source %s: delimiter must be a single character", s.ID)
		}
	}
	return nil
}
