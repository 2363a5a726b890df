// Package config loads the service configuration from a YAML file and lets
// environment variables override the deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "./config/config.yaml"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AMQP     AMQPConfig     `yaml:"amqp"`
	Auth     AuthConfig     `yaml:"auth"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Payment  PaymentConfig  `yaml:"payment"`
	URLs     URLConfig      `yaml:"urls"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects postgres when DSN is set; otherwise the service
// keeps everything in memory.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	Replicas        []string      `yaml:"replicas"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CartTTL  time.Duration `yaml:"cart_ttl"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
	// AdminEmail is promoted to admin at startup when the account exists.
	AdminEmail string `yaml:"admin_email"`
}

// PricingConfig amounts are in rupees.
type PricingConfig struct {
	TaxRate               float64 `yaml:"tax_rate"`
	FlatShipping          float64 `yaml:"flat_shipping"`
	FreeShippingThreshold float64 `yaml:"free_shipping_threshold"`
}

type PaymentConfig struct {
	COD          CODConfig          `yaml:"cod"`
	BankTransfer BankTransferConfig `yaml:"bank_transfer"`
	Khalti       KhaltiConfig       `yaml:"khalti"`
	Esewa        EsewaConfig        `yaml:"esewa"`
}

type CODConfig struct {
	Enabled   bool    `yaml:"enabled"`
	MaxAmount float64 `yaml:"max_amount"`
	Surcharge float64 `yaml:"surcharge"`
}

type BankTransferConfig struct {
	Enabled      bool               `yaml:"enabled"`
	Details      apppay.BankDetails `yaml:"details"`
	Instructions []string           `yaml:"instructions"`
}

type KhaltiConfig struct {
	Enabled       bool   `yaml:"enabled"`
	PublicKey     string `yaml:"public_key"`
	SecretKey     string `yaml:"secret_key"`
	PaymentURL    string `yaml:"payment_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type EsewaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	MerchantCode  string        `yaml:"merchant_code"`
	SecretKey     string        `yaml:"secret_key"`
	FormURL       string        `yaml:"form_url"`
	StatusURL     string        `yaml:"status_url"`
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
	VerifyRetries int           `yaml:"verify_retries"`
}

type URLConfig struct {
	Frontend string `yaml:"frontend"`
	Backend  string `yaml:"backend"`
}

// Default is the configuration used when no file is present.
func Default() Config {
	return Config{
		Service: ServiceConfig{Name: "sportsphere", Env: "dev", LogLevel: "info"},
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{CartTTL: 30 * 24 * time.Hour},
		AMQP:  AMQPConfig{Exchange: "sportsphere.orders"},
		Auth: AuthConfig{
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: 10,
		},
		Pricing: PricingConfig{
			TaxRate:               0.13,
			FlatShipping:          200,
			FreeShippingThreshold: 5000,
		},
		Payment: PaymentConfig{
			COD:          CODConfig{Enabled: true, MaxAmount: 20000, Surcharge: 100},
			BankTransfer: BankTransferConfig{Enabled: true},
			Khalti:       KhaltiConfig{Enabled: true},
			Esewa: EsewaConfig{
				Enabled:       true,
				VerifyTimeout: 10 * time.Second,
				VerifyRetries: 2,
			},
		},
		URLs: URLConfig{
			Frontend: "http://localhost:3000",
			Backend:  "http://localhost:5000",
		},
	}
}

// Load reads path on top of Default and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SERVICE_NAME", &c.Service.Name)
	str("ENV", &c.Service.Env)
	str("LOG_LEVEL", &c.Service.LogLevel)
	str("LOG_FILE", &c.Service.LogFile)
	str("DATABASE_DSN", &c.Database.DSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("AMQP_URL", &c.AMQP.URL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("ADMIN_EMAIL", &c.Auth.AdminEmail)
	str("KHALTI_PUBLIC_KEY", &c.Payment.Khalti.PublicKey)
	str("KHALTI_SECRET_KEY", &c.Payment.Khalti.SecretKey)
	str("KHALTI_WEBHOOK_SECRET", &c.Payment.Khalti.WebhookSecret)
	str("ESEWA_MERCHANT_ID", &c.Payment.Esewa.MerchantCode)
	str("ESEWA_MERCHANT_CODE", &c.Payment.Esewa.MerchantCode)
	str("ESEWA_SECRET_KEY", &c.Payment.Esewa.SecretKey)
	str("FRONTEND_URL", &c.URLs.Frontend)
	str("BACKEND_URL", &c.URLs.Backend)

	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required (or JWT_SECRET)")
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate >= 1 {
		problems = append(problems, "pricing.tax_rate must be in [0, 1)")
	}
	if c.Payment.Esewa.VerifyRetries < 0 {
		problems = append(problems, "payment.esewa.verify_retries must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	c.URLs.Frontend = strings.TrimRight(c.URLs.Frontend, "/")
	c.URLs.Backend = strings.TrimRight(c.URLs.Backend, "/")
	return nil
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }
