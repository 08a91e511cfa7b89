package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/config"
	"github.com/tickerwatch/notifier/internal/delivery"
	"github.com/tickerwatch/notifier/internal/infra/db"
	"github.com/tickerwatch/notifier/internal/infra/log"
	"github.com/tickerwatch/notifier/internal/infra/stream"
	"github.com/tickerwatch/notifier/internal/ops"
	"github.com/tickerwatch/notifier/internal/usecase"
)

// feed is either the kafka consumer or the direct websocket feed.
type feed interface {
	Run(ctx context.Context) error
	Healthy() bool
}

type App struct {
	feed      feed
	opsServer *ops.Server
	logger    *zap.Logger
	cleanupFn func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	alertRepo := db.NewAlertRepository(dbConn)
	logRepo := db.NewAlertLogRepository(dbConn)
	userRepo := db.NewUserRepository(dbConn)
	notifRepo := db.NewNotificationRepository(dbConn)

	emailChannel := delivery.NewEmailChannel(cfg.SMTP, cfg.FrontendURL, logger)
	inAppChannel := delivery.NewInAppChannel(notifRepo, logger)
	router := delivery.NewRouter(userRepo, logRepo, inAppChannel, emailChannel, logger)

	evaluator := usecase.NewEvaluator(alertRepo, logRepo, router, logger)

	var quoteFeed feed
	switch cfg.FeedMode {
	case config.FeedModeKafka:
		quoteFeed = stream.NewKafkaFeed(cfg, evaluator.HandlePriceUpdate, logger)
	case config.FeedModeWebsocket:
		quoteFeed = stream.NewWSFeed(cfg.FeedWSURL, cfg.FeedWSReadTimeout, evaluator.HandlePriceUpdate, logger)
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.FeedMode)
	}

	opsServer := ops.NewServer(cfg.OpsAddr, quoteFeed.Healthy, emailChannel, cfg.CanaryToken, logger)

	cleanup := func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return &App{
		feed:      quoteFeed,
		opsServer: opsServer,
		logger:    logger,
		cleanupFn: cleanup,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("notifier service starting")

	errCh := make(chan error, 2)
	go func() {
		if err := a.opsServer.Run(ctx); err != nil {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()
	go func() {
		if err := a.feed.Run(ctx); err != nil {
			errCh <- fmt.Errorf("quote feed: %w", err)
		}
		errCh <- nil
	}()

	a.logger.Info("notifier service started")
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Shutdown() {
	a.logger.Info("notifier service shutting down")
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
