package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phishing-sentinel/")
	v.AddConfigPath("$HOME/.phishing-sentinel")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// ML provider defaults
	v.SetDefault("ml.provider", "bedrock")
	v.SetDefault("ml.probability_floor", 0.05)
	v.SetDefault("ml.confidence_high", 0.80)
	v.SetDefault("ml.confidence_medium", 0.50)
	v.SetDefault("ml.max_text_size", 4096)

	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.env", "development")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 256)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 256)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 256)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 0.9)

	// Static classifier defaults
	v.SetDefault("static.probability", 0.05)

	// Rule defaults
	v.SetDefault("rules.suspicious_tlds", []string{"ru", "cn", "tk", "ml", "ga", "cf"})
	v.SetDefault("rules.urgency_keywords", []string{"urgent", "immediate", "action required", "verify", "confirm"})
	v.SetDefault("rules.suspicious_phrases", []string{"click here", "login now", "update your information", "account suspended"})
	v.SetDefault("rules.weights.suspicious_sender_domain", 0.30)
	v.SetDefault("rules.weights.urgent_subject", 0.20)
	v.SetDefault("rules.weights.multiple_domains", 0.25)
	v.SetDefault("rules.weights.url_mismatch", 0.15)
	v.SetDefault("rules.weights.suspicious_phrases", 0.10)

	// Fusion defaults
	v.SetDefault("fusion.rules_weight", 0.4)
	v.SetDefault("fusion.ml_weight", 0.6)
	v.SetDefault("fusion.verdict_threshold", 0.5)
	v.SetDefault("fusion.fail_open", true)

	// Scan defaults
	v.SetDefault("scan.allowlisted_domains", []string{})

	// Storage defaults
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.retention", "720h")
	v.SetDefault("storage.cleanup_frequency", "1h")
	v.SetDefault("storage.sqlite_path", "/data/scan_history.db")
	v.SetDefault("storage.mysql_dsn", "user:password@tcp(localhost:3306)/phishing_sentinel?parseTime=true")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
