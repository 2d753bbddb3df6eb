package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Mail     MailConfig     `yaml:"mail"`
	Payment  PaymentConfig  `yaml:"payment"`
	Contract ContractConfig `yaml:"contract"`
	CORS     CORSConfig     `yaml:"cors"`
	// Environment is the deployment environment name ("production", "development").
	Environment string `yaml:"environment"`
	// RailwayEnvironment is set by the Railway platform; non-empty means a hosted deploy.
	RailwayEnvironment string `yaml:"-"`
}

// IsProduction reports whether the process runs in a hosted/production
// environment. Railway deploys count as production regardless of NODE_ENV.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.RailwayEnvironment != ""
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, honoring SERVER_HOST.
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// Lifetime returns the connection max lifetime as a duration
func (c DatabaseConfig) Lifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

// RedisConfig holds the optional Redis connection used for the bulk-send lock.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MailConfig selects and configures the delivery provider.
type MailConfig struct {
	// Provider is one of auto, smtp, gmail, resend, web3forms, ses.
	Provider    string `yaml:"provider"`
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
	MaxAttempts int    `yaml:"max_attempts"`
	// EscapeCustomMessages HTML-escapes free text in custom emails before
	// newline conversion. Off by default to keep the historical rendering.
	EscapeCustomMessages bool `yaml:"escape_custom_messages"`

	SMTP      SMTPConfig      `yaml:"smtp"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Resend    ResendConfig    `yaml:"resend"`
	Web3Forms Web3FormsConfig `yaml:"web3forms"`
	SES       SESConfig       `yaml:"ses"`
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Profile is "constrained" (one session, long timeouts) or "pooled".
	// Empty picks constrained in production and pooled otherwise.
	Profile string `yaml:"profile"`
}

// GmailConfig holds Gmail API OAuth2 credentials
type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Configured reports whether the full OAuth2 credential set is present.
func (c GmailConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// ResendConfig holds Resend API configuration
type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Web3FormsConfig holds Web3Forms API configuration
type Web3FormsConfig struct {
	AccessKey string `yaml:"access_key"`
	Endpoint  string `yaml:"endpoint"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Configured reports whether static SES credentials are present.
func (c SESConfig) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PaymentConfig holds the card payment links by registration lot.
type PaymentConfig struct {
	// Lote1Link is used for registrations in lot "lote1".
	Lote1Link string `yaml:"lote1_link"`
	// DefaultLink is used for every other lot.
	DefaultLink string `yaml:"default_link"`
}

// ContractConfig locates the participation contract PDF attached to contract emails.
type ContractConfig struct {
	// URL may be http(s):// or s3://bucket/key.
	URL      string `yaml:"url"`
	Path     string `yaml:"path"`
	Filename string `yaml:"filename"`
	// S3Region is used when URL is an s3:// location.
	S3Region string `yaml:"s3_region"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "auto"
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "Legacy Camp"
	}
	// Delivery never makes more than three attempts per email.
	if cfg.Mail.MaxAttempts <= 0 || cfg.Mail.MaxAttempts > 3 {
		cfg.Mail.MaxAttempts = 3
	}
	if cfg.Mail.SMTP.Host == "" {
		cfg.Mail.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 465
	}
	if cfg.Mail.Gmail.RedirectURL == "" {
		cfg.Mail.Gmail.RedirectURL = "http://localhost:3000/oauth/callback"
	}
	if cfg.Mail.Web3Forms.Endpoint == "" {
		cfg.Mail.Web3Forms.Endpoint = "https://api.web3forms.com/submit"
	}
	if cfg.Mail.SES.Region == "" {
		cfg.Mail.SES.Region = "us-east-1"
	}
	if cfg.Mail.SES.TimeoutSeconds == 0 {
		cfg.Mail.SES.TimeoutSeconds = 30
	}
	if cfg.Contract.Path == "" {
		cfg.Contract.Path = "assets/contrato-legacy-camp.pdf"
	}
	if cfg.Contract.Filename == "" {
		cfg.Contract.Filename = "Contrato-Legacy-Camp.pdf"
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:4200", "http://localhost:3000"}
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on Railway.
// A missing YAML file is not an error: hosted deploys are env-only.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := firstEnv("NODE_ENV", "APP_ENV"); v != "" {
		cfg.Environment = v
	}
	cfg.RailwayEnvironment = os.Getenv("RAILWAY_ENVIRONMENT")

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	// Mail overrides
	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Mail.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		cfg.Mail.FromAddress = v
		cfg.Mail.SMTP.Username = v
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		cfg.Mail.SMTP.Password = v
	}
	if v := os.Getenv("EMAIL_FROM_NAME"); v != "" {
		cfg.Mail.FromName = v
	}
	if v := os.Getenv("EMAIL_ESCAPE_CUSTOM_MESSAGES"); v != "" {
		cfg.Mail.EscapeCustomMessages, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mail.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_PROFILE"); v != "" {
		cfg.Mail.SMTP.Profile = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Mail.Gmail.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Mail.Gmail.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REFRESH_TOKEN"); v != "" {
		cfg.Mail.Gmail.RefreshToken = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		cfg.Mail.Gmail.RedirectURL = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Mail.Resend.APIKey = v
	}
	if v := os.Getenv("WEB3FORMS_ACCESS_KEY"); v != "" {
		cfg.Mail.Web3Forms.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Mail.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Mail.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Mail.SES.Region = v
	}

	// Payment and contract overrides
	if v := os.Getenv("PAYMENT_LINK_LOTE1"); v != "" {
		cfg.Payment.Lote1Link = v
	}
	if v := os.Getenv("PAYMENT_LINK_DEFAULT"); v != "" {
		cfg.Payment.DefaultLink = v
	}
	if v := os.Getenv("CONTRACT_URL"); v != "" {
		cfg.Contract.URL = v
	}
	if v := os.Getenv("CONTRACT_PATH"); v != "" {
		cfg.Contract.Path = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}

	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
