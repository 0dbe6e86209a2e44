package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendLocal = "local"
	BackendAzure = "azure"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Upload UploadConfig `mapstructure:"upload"`
	Azure  AzureConfig  `mapstructure:"azure"`
	API    APIConfig    `mapstructure:"api"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               string        `mapstructure:"port"`
	Mode               string        `mapstructure:"mode"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"`
}

type UploadConfig struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	UniqueNames bool   `mapstructure:"unique_names"`
}

type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	// ServiceURL overrides the default https://<account>.blob.core.windows.net endpoint.
	ServiceURL string `mapstructure:"service_url"`
}

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Store   bool          `mapstructure:"store"`
	KeyFile string        `mapstructure:"key_file"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Key is read once from KeyFile and never reloaded.
	Key string `mapstructure:"-"`
}

type OCRConfig struct {
	Language string `mapstructure:"language"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Server.Host)
	port := strings.TrimSpace(c.Server.Port)
	return net.JoinHostPort(host, port)
}

var defaults = map[string]interface{}{
	"server.host":                  "0.0.0.0",
	"server.port":                  "8080",
	"server.mode":                  "release",
	"server.request_timeout":       time.Duration(0),
	"server.max_request_body_size": int64(10 * 1024 * 1024), // 10MB
	"upload.backend":               BackendLocal,
	"upload.dir":                   "uploads",
	"upload.unique_names":          false,
	"azure.account_name":           "",
	"azure.account_key":            "",
	"azure.container":              "uploads",
	"azure.service_url":            "",
	"api.url":                      "https://api.openai.com/v1/chat/completions",
	"api.model":                    "gpt-4o-mini",
	"api.store":                    true,
	"api.key_file":                 "apikey.txt",
	"api.timeout":                  time.Duration(0),
	"ocr.language":                 "eng",
	"log.level":                    "info",
	"log.file":                     "",
	"log.max_size_mb":              50,
	"log.max_backups":              3,
	"log.max_age_days":             14,
}

// envBindings keeps the flat environment names used in deployments.
var envBindings = map[string]string{
	"server.host":                  "HOST",
	"server.port":                  "PORT",
	"server.mode":                  "GIN_MODE",
	"server.request_timeout":       "REQUEST_TIMEOUT",
	"server.max_request_body_size": "MAX_REQUEST_BODY_SIZE",
	"upload.backend":               "UPLOAD_BACKEND",
	"upload.dir":                   "UPLOAD_DIR",
	"upload.unique_names":          "UPLOAD_UNIQUE_NAMES",
	"azure.account_name":           "AZURE_ACCOUNT_NAME",
	"azure.account_key":            "AZURE_ACCOUNT_KEY",
	"azure.container":              "AZURE_CONTAINER",
	"azure.service_url":            "AZURE_SERVICE_URL",
	"api.url":                      "API_URL",
	"api.model":                    "API_MODEL",
	"api.store":                    "API_STORE",
	"api.key_file":                 "API_KEY_FILE",
	"api.timeout":                  "API_TIMEOUT",
	"ocr.language":                 "OCR_LANGUAGE",
	"log.level":                    "LOG_LEVEL",
	"log.file":                     "LOG_FILE",
	"log.max_size_mb":              "LOG_MAX_SIZE_MB",
	"log.max_backups":              "LOG_MAX_BACKUPS",
	"log.max_age_days":             "LOG_MAX_AGE_DAYS",
}

// Load builds the configuration from defaults, an optional config/config.yaml
// and the environment, then reads the API key file.
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key, err := LoadAPIKey(cfg.API.KeyFile)
	if err != nil {
		return nil, err
	}
	cfg.API.Key = key

	return &cfg, nil
}

// Validate checks the values that would otherwise fail late at request time
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Server.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Server.Port)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.Server.MaxRequestBodySize)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be >= 0 (got %s)", c.Server.RequestTimeout)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("API_TIMEOUT must be >= 0 (got %s)", c.API.Timeout)
	}
	if strings.TrimSpace(c.API.URL) == "" {
		return errors.New("API_URL must not be empty")
	}

	switch c.Upload.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Upload.Dir) == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case BackendAzure:
		if c.Azure.AccountName == "" || c.Azure.AccountKey == "" || c.Azure.Container == "" {
			return errors.New("azure backend needs AZURE_ACCOUNT_NAME, AZURE_ACCOUNT_KEY and AZURE_CONTAINER")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND: %q", c.Upload.Backend)
	}
	return nil
}

// LoadAPIKey reads the credential file once; surrounding whitespace is dropped.
func LoadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read API key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
