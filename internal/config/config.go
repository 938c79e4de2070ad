package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Cache      CacheConfig
	Billing    BillingConfig `validate:"required"`
	Providers  ProvidersConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type CacheConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupInterval time.Duration
}

// BillingConfig tunes the invoice pipeline itself.
type BillingConfig struct {
	// InvoiceNumberPrefix is the leading segment of generated invoice
	// numbers, e.g. "CB" -> CB-202507-ACME-0001.
	InvoiceNumberPrefix string `validate:"required"`
	// CustomerTimeout bounds a single customer's pipeline pass within a
	// run. Zero disables the per-customer deadline.
	CustomerTimeout time.Duration
}

type ProvidersConfig struct {
	GCP    GCPConfig
	AWS    AWSConfig
	OpenAI OpenAIConfig
	Custom CustomConfig
}

// GCPConfig points at the billing-export read endpoint, typically a thin
// proxy in front of the BigQuery billing export dataset.
type GCPConfig struct {
	ExportURL string
	APIKey    string
}

// AWSConfig locates Cost and Usage Report objects in S3.
type AWSConfig struct {
	Region       string
	Bucket       string
	ReportPrefix string
}

type OpenAIConfig struct {
	APIURL            string
	APIKey            string
	RequestsPerMinute int
}

type CustomConfig struct {
	FeedURL string
}

func NewConfig() (*Configuration, error) {
	// Local development keeps secrets in a .env file; absence is fine.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cloudbill")

	v.SetEnvPrefix("CLOUDBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.cleanupinterval", time.Hour)
	v.SetDefault("billing.invoicenumberprefix", "CB")
	v.SetDefault("billing.customertimeout", 2*time.Minute)
	v.SetDefault("providers.openai.requestsperminute", 60)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and test suites.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Cache:      CacheConfig{Enabled: true, TTL: 30 * time.Minute, CleanupInterval: time.Hour},
		Billing: BillingConfig{
			InvoiceNumberPrefix: "CB",
			CustomerTimeout:     2 * time.Minute,
		},
	}
}
