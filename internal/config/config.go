package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// FeedMode selects where batched price updates come from.
const (
	FeedModeKafka     = "kafka"
	FeedModeWebsocket = "websocket"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=info"`

	FeedMode string `env:"FEED_MODE,default=kafka"`

	KafkaBrokers []string      `env:"KAFKA_BROKERS,default=localhost:9092"`
	KafkaTopic   string        `env:"KAFKA_TOPIC,default=price-updates"`
	KafkaGroupID string        `env:"KAFKA_GROUP_ID,default=notifier"`
	KafkaMaxWait time.Duration `env:"KAFKA_MAX_WAIT,default=1s"`

	FeedWSURL         string        `env:"FEED_WS_URL"`
	FeedWSReadTimeout time.Duration `env:"FEED_WS_READ_TIMEOUT,default=0s"`

	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	SMTP SMTPConfig `env:",prefix=SMTP_"`

	FrontendURL string `env:"FRONTEND_URL,default=https://app.tickerwatch.io"`

	OpsAddr     string `env:"OPS_ADDR,default=:9090"`
	CanaryToken string `env:"CANARY_TOKEN"`
}

// SMTPConfig is the outbound email provider. Empty host/password means
// email delivery is disabled (local dev).
type SMTPConfig struct {
	Host      string `env:"HOST"`
	Port      int    `env:"PORT,default=587"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	FromEmail string `env:"FROM_EMAIL,default=alerts@tickerwatch.io"`
	FromName  string `env:"FROM_NAME,default=TickerWatch Alerts"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.FeedMode {
	case FeedModeKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("FEED_MODE=kafka requires KAFKA_BROKERS")
		}
	case FeedModeWebsocket:
		if c.FeedWSURL == "" {
			return fmt.Errorf("FEED_MODE=websocket requires FEED_WS_URL")
		}
	default:
		return fmt.Errorf("unknown FEED_MODE %q", c.FeedMode)
	}
	return nil
}
