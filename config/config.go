package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	PublishModeDirect = "direct"
	PublishModeOutbox = "outbox"
)

type CatalogConfig struct {
	Port   string       `mapstructure:"PORT" validate:"required"`
	Db     DbConfig     `mapstructure:",squash"`
	Nats   NatsConfig   `mapstructure:",squash"`
	Outbox OutboxConfig `mapstructure:",squash"`
}

type BasketConfig struct {
	Port     string         `mapstructure:"PORT" validate:"required"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Nats     NatsConfig     `mapstructure:",squash"`
	Consumer ConsumerConfig `mapstructure:",squash"`
}

type DbConfig struct {
	Host     string `mapstructure:"DB_HOST" validate:"required"`
	Port     string `mapstructure:"DB_PORT" validate:"required"`
	Username string `mapstructure:"DB_USERNAME" validate:"required"`
	Password string `mapstructure:"DB_PASSWORD" validate:"required"`
	DbName   string `mapstructure:"DB_DBNAME" validate:"required"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`

	MaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME" validate:"gte=0"`
}

type NatsConfig struct {
	Url        string `mapstructure:"NATS_URL" validate:"required"`
	StreamName string `mapstructure:"NATS_STREAM_NAME" validate:"required"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"REDIS_ADDR" validate:"required"`
	Password  string        `mapstructure:"REDIS_PASSWORD"`
	DB        int           `mapstructure:"REDIS_DB" validate:"gte=0"`
	BasketTTL time.Duration `mapstructure:"BASKET_TTL" validate:"gte=0"`
}

// ConsumerConfig is the redelivery policy of the basket price subscription.
// The broker owns retries; these values are passed to it as is.
type ConsumerConfig struct {
	Durable     string          `mapstructure:"CONSUMER_DURABLE" validate:"required"`
	MaxDeliver  int             `mapstructure:"CONSUMER_MAX_DELIVER" validate:"gte=-1,ne=0"`
	AckWait     time.Duration   `mapstructure:"CONSUMER_ACK_WAIT" validate:"gt=0"`
	BackOff     []time.Duration `mapstructure:"CONSUMER_BACKOFF"`
	NakDelay    time.Duration   `mapstructure:"CONSUMER_NAK_DELAY" validate:"gte=0"`
	Concurrency int             `mapstructure:"CONSUMER_CONCURRENCY" validate:"gte=1"`
}

type OutboxConfig struct {
	PublishMode  string        `mapstructure:"PUBLISH_MODE" validate:"oneof=direct outbox"`
	PollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL" validate:"gt=0"`
	BatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE" validate:"gte=1"`
}

var catalogDefaults = map[string]any{
	"PORT":                 "8080",
	"DB_SSLMODE":           "disable",
	"DB_MAX_OPEN_CONNS":    10,
	"DB_MAX_IDLE_CONNS":    5,
	"DB_CONN_MAX_LIFETIME": "30m",
	"NATS_URL":             "nats://localhost:4222",
	"NATS_STREAM_NAME":     "catalog",
	"PUBLISH_MODE":         PublishModeDirect,
	"OUTBOX_POLL_INTERVAL": "2s",
	"OUTBOX_BATCH_SIZE":    100,
}

var basketDefaults = map[string]any{
	"PORT":                 "8081",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_DB":             0,
	"BASKET_TTL":           "0s",
	"NATS_URL":             "nats://localhost:4222",
	"NATS_STREAM_NAME":     "catalog",
	"CONSUMER_DURABLE":     "basket-product-price-changed",
	"CONSUMER_MAX_DELIVER": 10,
	"CONSUMER_ACK_WAIT":    "30s",
	"CONSUMER_NAK_DELAY":   "5s",
	"CONSUMER_CONCURRENCY": 4,
}

var catalogEnvVars = []string{
	"PORT",
	"DB_HOST",
	"DB_PORT",
	"DB_USERNAME",
	"DB_PASSWORD",
	"DB_DBNAME",
	"DB_SSLMODE",
	"DB_MAX_OPEN_CONNS",
	"DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME",
	"NATS_URL",
	"NATS_STREAM_NAME",
	"PUBLISH_MODE",
	"OUTBOX_POLL_INTERVAL",
	"OUTBOX_BATCH_SIZE",
}

var basketEnvVars = []string{
	"PORT",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"BASKET_TTL",
	"NATS_URL",
	"NATS_STREAM_NAME",
	"CONSUMER_DURABLE",
	"CONSUMER_MAX_DELIVER",
	"CONSUMER_ACK_WAIT",
	"CONSUMER_BACKOFF",
	"CONSUMER_NAK_DELAY",
	"CONSUMER_CONCURRENCY",
}

func InitCatalogConfig(ctx context.Context) (*CatalogConfig, error) {
	var cfg CatalogConfig
	if err := load(ctx, catalogDefaults, catalogEnvVars, &cfg); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "[InitCatalogConfig] Configuration after binding",
		"PORT", cfg.Port,
		"DB_HOST", cfg.Db.Host,
		"DB_PORT", cfg.Db.Port,
		"DB_USERNAME", cfg.Db.Username,
		"DB_DBNAME", cfg.Db.DbName,
		"DB_SSLMODE", cfg.Db.SSLMode,
		"NATS_URL", cfg.Nats.Url,
		"NATS_STREAM_NAME", cfg.Nats.StreamName,
		"PUBLISH_MODE", cfg.Outbox.PublishMode)

	if err := validate(ctx, cfg); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "[InitCatalogConfig] Config loaded successfully")
	return &cfg, nil
}

func InitBasketConfig(ctx context.Context) (*BasketConfig, error) {
	var cfg BasketConfig
	if err := load(ctx, basketDefaults, basketEnvVars, &cfg); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "[InitBasketConfig] Configuration after binding",
		"PORT", cfg.Port,
		"REDIS_ADDR", cfg.Redis.Addr,
		"REDIS_DB", cfg.Redis.DB,
		"BASKET_TTL", cfg.Redis.BasketTTL,
		"NATS_URL", cfg.Nats.Url,
		"NATS_STREAM_NAME", cfg.Nats.StreamName,
		"CONSUMER_DURABLE", cfg.Consumer.Durable,
		"CONSUMER_MAX_DELIVER", cfg.Consumer.MaxDeliver,
		"CONSUMER_BACKOFF", cfg.Consumer.BackOff)

	if err := validate(ctx, cfg); err != nil {
		return nil, err
	}

	// JetStream rejects a backoff schedule that is not shorter than max deliver.
	if n := len(cfg.Consumer.BackOff); n > 0 && cfg.Consumer.MaxDeliver != -1 && cfg.Consumer.MaxDeliver <= n {
		err := fmt.Errorf("CONSUMER_MAX_DELIVER (%d) must be greater than the number of CONSUMER_BACKOFF steps (%d)",
			cfg.Consumer.MaxDeliver, n)
		slog.ErrorContext(ctx, "[InitBasketConfig] Validation", "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "[InitBasketConfig] Config loaded successfully")
	return &cfg, nil
}

func load(ctx context.Context, defaults map[string]any, envVars []string, out any) error {
	// Reset viper to avoid any previous configuration
	viper.Reset()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetConfigType("env")

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	_, err := os.Stat(envFile)
	if !os.IsNotExist(err) {
		viper.SetConfigFile(envFile)

		if err := viper.ReadInConfig(); err != nil {
			slog.WarnContext(ctx, "[InitConfig] ReadInConfig warning, continuing with env vars only", "error", err)
		} else {
			slog.InfoContext(ctx, "[InitConfig] Successfully loaded config file", "file", envFile)
		}
	} else {
		slog.InfoContext(ctx, "[InitConfig] No config file found, using environment variables")
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	viper.AutomaticEnv()

	// Bind environment variables explicitly so Unmarshal sees keys without defaults
	for _, key := range envVars {
		viper.BindEnv(key)
	}

	if err := viper.Unmarshal(out); err != nil {
		slog.ErrorContext(ctx, "[InitConfig] Unmarshal", "failed bind config", err)
		return err
	}

	return nil
}

func validate(ctx context.Context, cfg any) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if ok {
			for _, validationErr := range validationErrs {
				slog.ErrorContext(ctx, "[InitConfig] Validation error",
					"field", validationErr.Field(),
					"namespace", validationErr.Namespace(),
					"tag", validationErr.Tag(),
					"value", validationErr.Value())
			}
		} else {
			slog.ErrorContext(ctx, "[InitConfig] Validation", "error", err)
		}
		return err
	}
	return nil
}
