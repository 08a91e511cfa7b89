package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredDBEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "notifier")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "tickerwatch")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredDBEnv(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FeedModeKafka, cfg.FeedMode)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "price-updates", cfg.KafkaTopic)
	assert.Equal(t, "notifier", cfg.KafkaGroupID)
	assert.Equal(t, time.Second, cfg.KafkaMaxWait)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "alerts@tickerwatch.io", cfg.SMTP.FromEmail)
	assert.Equal(t, ":9090", cfg.OpsAddr)
}

func TestLoad_MissingDBConfig(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_SMTPPrefix(t *testing.T) {
	setRequiredDBEnv(t)
	t.Setenv("SMTP_HOST", "smtp.sendgrid.net")
	t.Setenv("SMTP_PASSWORD", "apikey")
	t.Setenv("SMTP_FROM_NAME", "Alerts")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "smtp.sendgrid.net", cfg.SMTP.Host)
	assert.Equal(t, "apikey", cfg.SMTP.Password)
	assert.Equal(t, "Alerts", cfg.SMTP.FromName)
}

func TestLoad_WebsocketModeRequiresURL(t *testing.T) {
	setRequiredDBEnv(t)
	t.Setenv("FEED_MODE", "websocket")

	_, err := Load(context.Background())
	assert.Error(t, err)

	t.Setenv("FEED_WS_URL", "wss://feed.tickerwatch.io/quotes")
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FeedModeWebsocket, cfg.FeedMode)
}

func TestLoad_UnknownFeedMode(t *testing.T) {
	setRequiredDBEnv(t)
	t.Setenv("FEED_MODE", "carrier-pigeon")

	_, err := Load(context.Background())
	assert.Error(t, err)
}
