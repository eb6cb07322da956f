package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type CheckoutConfig struct {
	Env          string `yaml:"env" env:"CHECKOUT_ENV" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	GRPCServer   `yaml:"grpc_server"`
	LogConfig    `yaml:"log_config"`
	Store        `yaml:"store"`
	CheckoutDB   `yaml:"checkout_db"`
	Redis        `yaml:"redis"`
	Mongo        `yaml:"mongo"`
	Gateway      `yaml:"gateway"`
	Payment      `yaml:"payment"`
	Sweep        `yaml:"sweep"`
	KafkaService `yaml:"kafka-service"`
	Fulfillment  `yaml:"fulfillment"`
}

type HTTPServer struct {
	Host               string        `yaml:"host" env-default:"0.0.0.0"`
	Port               string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout        time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env-default:"90s"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env-default:"*"`
	WebhookWorkers     int           `yaml:"webhook_workers" env-default:"16"`
	WebhookQueueSize   int           `yaml:"webhook_queue_size" env-default:"1024"`
}

type GRPCServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env-default:"json"`
	LogOutput string `yaml:"log_output" env-default:"stdout"`
}

// Store selects the transaction store backend: postgres, redis, mongo or memory.
type Store struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"postgres"`
}

type CheckoutDB struct {
	Dsn            string `yaml:"dsn" env:"CHECKOUT_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env-default:"migrations"`
	AutoMigrate    bool   `yaml:"auto_migrate" env-default:"true"`
}

type Redis struct {
	URL string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env-default:"checkout"`
}

type Gateway struct {
	BaseURL        string        `yaml:"base_url" env:"GATEWAY_BASE_URL" env-default:"https://api.chapa.co"`
	SecretKey      string        `yaml:"secret_key" env:"GATEWAY_SECRET_KEY"`
	WebhookSecret  string        `yaml:"webhook_secret" env:"GATEWAY_WEBHOOK_SECRET"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
	MaxAttempts    int           `yaml:"max_attempts" env-default:"5"`
	BackoffBase    time.Duration `yaml:"backoff_base" env-default:"500ms"`
	BackoffFactor  float64       `yaml:"backoff_factor" env-default:"2"`
	CallbackURL    string        `yaml:"callback_url" env:"GATEWAY_CALLBACK_URL"`
	ReturnURL      string        `yaml:"return_url" env:"GATEWAY_RETURN_URL"`
	Title          string        `yaml:"title" env-default:"Event tickets"`
	Description    string        `yaml:"description" env-default:"Ticket purchase"`
}

type Payment struct {
	TTL                  time.Duration `yaml:"ttl" env-default:"30m"`
	VerifyTimeout        time.Duration `yaml:"verify_timeout" env-default:"45s"`
	ConflictWait         time.Duration `yaml:"conflict_wait" env-default:"3s"`
	ConflictPollInterval time.Duration `yaml:"conflict_poll_interval" env-default:"100ms"`
	ReferencePrefix      string        `yaml:"reference_prefix" env-default:"tkt"`
}

type Sweep struct {
	Interval           time.Duration `yaml:"interval" env-default:"1m"`
	BatchSize          int           `yaml:"batch_size" env-default:"100"`
	VerifyBeforeExpire bool          `yaml:"verify_before_expire" env-default:"true"`
	StuckAfter         time.Duration `yaml:"stuck_after" env-default:"2m"`
}

type KafkaService struct {
	Enabled             bool   `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Host                string `yaml:"host" env:"KAFKA_HOST" env-default:"localhost"`
	Port                string `yaml:"port" env:"KAFKA_PORT" env-default:"9092"`
	PaymentEventsTopic  string `yaml:"payment_events_topic" env-default:"payment-events"`
	VerifyRequestsTopic string `yaml:"verify_requests_topic" env-default:"payment-verify-requests"`
	GroupID             string `yaml:"group_id" env-default:"checkout-service"`
}

type Fulfillment struct {
	CallbackURL    string        `yaml:"callback_url" env:"FULFILLMENT_CALLBACK_URL"`
	CallbackSecret string        `yaml:"callback_secret" env:"FULFILLMENT_CALLBACK_SECRET"`
	Timeout        time.Duration `yaml:"timeout" env-default:"15s"`
}

func (c *CheckoutConfig) KafkaBrokers() []string {
	return []string{c.KafkaService.Host + ":" + c.KafkaService.Port}
}

var errConfigPathMissing = errors.New("CHECKOUT_CONFIG_PATH was not found")

func MustLoad() *CheckoutConfig {
	cfg, err := Load(os.Getenv("CHECKOUT_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("%v\n", err)
	}
	return cfg
}

func Load(configPath string) (*CheckoutConfig, error) {
	if configPath == "" {
		return nil, errConfigPathMissing
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	// YAML to struct object
	var cfg CheckoutConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return &cfg, nil
}
