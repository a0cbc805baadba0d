// Package config предоставляет структуры и функции для загрузки конфигурации бота.
//
// Конфигурация читается из YAML-файла (путь в CONFIG_PATH, необязателен) и
// переменных окружения, которые имеют приоритет над файлом. Перед чтением
// подхватывается .env в рабочей директории, если он есть.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	Telegram                `yaml:"telegram"`
	Payments                `yaml:"payments"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	GoogleDrive             `yaml:"google_drive"`
	Outbound                `yaml:"outbound"`
}

// Telegram настройки бота и административных чатов
type Telegram struct {
	Token                        string `yaml:"token" env:"TOKEN" env-required:"true"`
	AdminID                      int64  `yaml:"admin_id" env:"ADMIN_ID" env-required:"true"`
	AdminChatID                  int64  `yaml:"admin_chat_id" env:"ADMIN_CHANNEL_ID"`
	AdvertisingChannelID         string `yaml:"advertising_channel_id" env:"ADVERTISING_CHANNEL_ID"`
	AdvertisingChannelInviteLink string `yaml:"advertising_channel_invite_link" env:"ADVERTISING_CHANNEL_INVITE_LINK"`
	SupportContact               string `yaml:"support_contact" env:"SUPPORT_CONTACT"`
	WebhookURL                   string `yaml:"webhook_url" env:"WEBHOOK_URL"`
	WebhookSecret                string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

// Payments настройки цены и жизненного цикла платежей
type Payments struct {
	ProviderToken      string `yaml:"provider_token" env:"PAYMENT_PROVIDER_TOKEN"`
	Currency           string `yaml:"currency" env:"CURRENCY" env-default:"XTR"`
	PriceAmount        int64  `yaml:"price_amount" env:"PRICE_AMOUNT" env-default:"1"`
	RequestExpiryHours int    `yaml:"request_expiry_hours" env:"REQUEST_EXPIRY_HOURS" env-default:"24"`
	CleanupInterval    int    `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL" env-default:"3600"` // секунды
	ProductTitle       string `yaml:"product_title" env:"PRODUCT_TITLE" env-default:"Premium content"`
	ProductDescription string `yaml:"product_description" env:"PRODUCT_DESCRIPTION" env-default:"One file from the content library, sent by the administrator after payment."`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ настройки брокера для событий аудита. Пустой URL отключает публикацию.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// JWTToken структура для работы с jwt-токеном администратора
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"1h"`
}

// GoogleDrive настройки хранилища контента
type GoogleDrive struct {
	CredentialsPath string `yaml:"credentials_path" env:"GOOGLE_DRIVE_CREDENTIALS_PATH"`
}

// Outbound ограничения на вызовы внешних сервисов
type Outbound struct {
	OutboundTimeout time.Duration `yaml:"timeout" env:"OUTBOUND_TIMEOUT" env-default:"30s"`
	OutboundRetries int           `yaml:"retries" env:"OUTBOUND_RETRIES" env-default:"3"`
	APIRateLimit    float64       `yaml:"api_rate_limit" env:"TELEGRAM_RATE_LIMIT" env-default:"25"`
	BlobMaxBytes    int64         `yaml:"blob_max_bytes" env:"BLOB_MAX_BYTES" env-default:"52428800"`
}

// RequestExpiry возвращает срок ожидания оплаты.
func (p Payments) RequestExpiry() time.Duration {
	return time.Duration(p.RequestExpiryHours) * time.Hour
}

// SweepInterval возвращает период запуска очистки просроченных платежей.
func (p Payments) SweepInterval() time.Duration {
	return time.Duration(p.CleanupInterval) * time.Second
}

// NotificationChatID возвращает чат для уведомлений администратора.
func (t Telegram) NotificationChatID() int64 {
	if t.AdminChatID != 0 {
		return t.AdminChatID
	}
	return t.AdminID
}

// Load читает конфигурацию и проверяет её.
func Load() (*Config, error) {
	const op = "config.Load"

	// .env необязателен, уже заданные переменные не перезаписываются
	_ = godotenv.Load()

	var cfg Config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file: %s - does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Validate проверяет значения, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	var errs []error
	if c.AdminID <= 0 {
		errs = append(errs, errors.New("telegram admin_id must be positive"))
	}
	if c.PriceAmount <= 0 {
		errs = append(errs, errors.New("payments price_amount must be positive"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("payments currency %q must be a 3-letter code", c.Currency))
	}
	if c.RequestExpiryHours <= 0 {
		errs = append(errs, errors.New("payments request_expiry_hours must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("payments cleanup_interval must be positive"))
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		errs = append(errs, errors.New("telegram webhook_secret is required in webhook mode"))
	}
	if c.OutboundRetries < 0 {
		errs = append(errs, errors.New("outbound retries must not be negative"))
	}
	return errors.Join(errs...)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"Telegram:\n"+
			"  Token: %s\n"+
			"  AdminID: %d\n"+
			"  AdminChatID: %d\n"+
			"  AdvertisingChannelID: %s\n"+
			"  WebhookURL: %s\n"+
			"Payments:\n"+
			"  Currency: %s\n"+
			"  PriceAmount: %d\n"+
			"  RequestExpiryHours: %d\n"+
			"  CleanupInterval: %ds\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		mask(c.Token),
		c.AdminID,
		c.AdminChatID,
		c.AdvertisingChannelID,
		c.WebhookURL,
		c.Currency,
		c.PriceAmount,
		c.RequestExpiryHours,
		c.CleanupInterval,
		c.AddressRedis,
		c.DB,
		mask(c.RabbitMQURL),
		c.AddressHTTP,
		c.TimeoutHTTP,
		mask(c.JWTSecretKey),
		c.TokenTTL,
	)
}
