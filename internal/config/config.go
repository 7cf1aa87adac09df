package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGenAI     = "genai"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Address         string        `mapstructure:"address"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Host     string        `mapstructure:"host"`
		Port     int           `mapstructure:"port"`
		User     string        `mapstructure:"user"`
		Password string        `mapstructure:"password"`
		Name     string        `mapstructure:"name"`
		SSLMode  string        `mapstructure:"sslmode"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"db"`
	Generation struct {
		Provider    string        `mapstructure:"provider"`
		APIKey      string        `mapstructure:"api_key"`
		BaseURL     string        `mapstructure:"base_url"`
		Model       string        `mapstructure:"model"`
		Temperature float64       `mapstructure:"temperature"`
		MaxTokens   int64         `mapstructure:"max_tokens"`
		StepCount   int           `mapstructure:"step_count"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"generation"`
	Email struct {
		APIKey  string        `mapstructure:"api_key"`
		BaseURL string        `mapstructure:"base_url"`
		From    string        `mapstructure:"from"`
		Subject string        `mapstructure:"subject"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"email"`
	Delivery struct {
		Enrich bool `mapstructure:"enrich"`
	} `mapstructure:"delivery"`
	Workflow struct {
		MaxTextLength int `mapstructure:"max_text_length"`
	} `mapstructure:"workflow"`
	Events struct {
		Brokers []string      `mapstructure:"brokers"`
		Topic   string        `mapstructure:"topic"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"events"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment. An
// empty path searches for config.yaml in the working directory and ./config;
// a missing file is fine as long as the environment supplies the values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("WFA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Generation.Provider = strings.ToLower(strings.TrimSpace(cfg.Generation.Provider))
	cfg.Email.BaseURL = normalizeBaseURL(cfg.Email.BaseURL)
	cfg.Generation.BaseURL = normalizeBaseURL(cfg.Generation.BaseURL)
	cfg.Events.Brokers = splitList(cfg.Events.Brokers)
	cfg.TLS.Hostnames = splitList(cfg.TLS.Hostnames)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timeout", 5*time.Second)

	v.SetDefault("generation.provider", ProviderAnthropic)
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.model", "claude-3-5-haiku-latest")
	v.SetDefault("generation.temperature", 0.5)
	v.SetDefault("generation.max_tokens", 2048)
	v.SetDefault("generation.step_count", 4)
	v.SetDefault("generation.timeout", 30*time.Second)

	v.SetDefault("email.api_key", "")
	v.SetDefault("email.base_url", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.subject", "Your Custom AI Workflow Instructions")
	v.SetDefault("email.timeout", 10*time.Second)

	v.SetDefault("delivery.enrich", false)
	v.SetDefault("workflow.max_text_length", 10000)

	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "workflow-assist.events")
	v.SetDefault("events.timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{"localhost", "127.0.0.1"})
}

// Validate reports every missing or out of range value in one error so that
// startup fails before the first request is served.
func (c *Config) Validate() error {
	var problems []string
	missing := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" is required")
		}
	}

	missing("db.host", c.DB.Host)
	missing("db.name", c.DB.Name)
	missing("db.user", c.DB.User)
	missing("generation.api_key", c.Generation.APIKey)
	missing("generation.model", c.Generation.Model)
	missing("email.api_key", c.Email.APIKey)
	missing("email.from", c.Email.From)

	maxTemperature := 2.0
	switch c.Generation.Provider {
	case ProviderAnthropic:
		maxTemperature = 1.0
	case ProviderGenAI:
	default:
		problems = append(problems, fmt.Sprintf("generation.provider %q is not supported", c.Generation.Provider))
	}
	if c.Generation.StepCount < 1 || c.Generation.StepCount > 10 {
		problems = append(problems, "generation.step_count must be between 1 and 10")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > maxTemperature {
		problems = append(problems, fmt.Sprintf("generation.temperature must be between 0 and %g for provider %s",
			maxTemperature, c.Generation.Provider))
	}
	if c.Generation.MaxTokens < 1 || c.Generation.MaxTokens > math.MaxInt32 {
		problems = append(problems, fmt.Sprintf("generation.max_tokens must be between 1 and %d", math.MaxInt32))
	}
	if c.Workflow.MaxTextLength <= 0 {
		problems = append(problems, "workflow.max_text_length must be positive")
	}
	if c.DB.Port <= 0 {
		problems = append(problems, "db.port must be positive")
	}
	if c.TLS.Enable {
		missing("tls.cert_file", c.TLS.CertFile)
		missing("tls.key_file", c.TLS.KeyFile)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the libpq style connection string for the database.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// normalizeBaseURL strips surrounding whitespace and any trailing slash so
// that paths can be appended without doubling separators.
func normalizeBaseURL(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}

// splitList accepts both a YAML list and a single comma separated value
// coming from the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
