package config

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Plans    PlansConfig    `mapstructure:"plans"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type OpenAIConfig struct {
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	WhisperModel string  `mapstructure:"whisper_model"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`
}

type PaymentsConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	StoreID       string `mapstructure:"store_id"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// TierConfig describes one subscription tier and its quotas.
type TierConfig struct {
	Name                      string `mapstructure:"name"`
	DisplayName               string `mapstructure:"display_name"`
	VariantID                 string `mapstructure:"variant_id"`
	NoteLimit                 int    `mapstructure:"note_limit"`
	TranscriptionSecondsLimit int64  `mapstructure:"transcription_seconds_limit"`
}

type PlansConfig struct {
	Tiers []TierConfig `mapstructure:"tiers"`
	// DefaultPaid names the tier an active subscriber falls back to when
	// neither their variant id nor plan name matches a known tier.
	DefaultPaid string `mapstructure:"default_paid"`
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.JWTSecret, validation.Required),
	); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := validation.ValidateStruct(&c.OpenAI,
		validation.Field(&c.OpenAI.APIKey, validation.Required),
		validation.Field(&c.OpenAI.Model, validation.Required),
	); err != nil {
		return fmt.Errorf("openai config: %w", err)
	}
	return nil
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.whisper_model", "whisper-1")
	v.SetDefault("openai.max_tokens", 2048)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("payments.base_url", "https://api.lemonsqueezy.com/v1")
	v.SetDefault("plans.default_paid", "pro")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if secret := v.GetString("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if apiKey := v.GetString("PAYMENTS_API_KEY"); apiKey != "" {
		config.Payments.APIKey = apiKey
	}

	if secret := v.GetString("PAYMENTS_WEBHOOK_SECRET"); secret != "" {
		config.Payments.WebhookSecret = secret
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
