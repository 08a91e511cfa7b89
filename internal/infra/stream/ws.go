package stream

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/metrics"
)

const reconnectDelay = 5 * time.Second

// WSFeed reads batched price updates straight off the quote publisher's
// websocket endpoint, for environments that run without the message bus.
// Unlike the bus there is no redelivery: a handler error on the direct
// feed is logged and the update is gone.
type WSFeed struct {
	url         string
	dialer      *websocket.Dialer
	readTimeout time.Duration
	handler     Handler
	logger      *zap.Logger

	healthy atomic.Bool
}

func NewWSFeed(url string, readTimeout time.Duration, handler Handler, logger *zap.Logger) *WSFeed {
	return &WSFeed{
		url: url,
		dialer: &websocket.Dialer{
			Proxy: http.ProxyFromEnvironment,
		},
		readTimeout: readTimeout,
		handler:     handler,
		logger:      logger,
	}
}

func (f *WSFeed) Healthy() bool {
	return f.healthy.Load()
}

// Run keeps a connection open until ctx is cancelled, reconnecting with a
// fixed delay after any failure.
func (f *WSFeed) Run(ctx context.Context) error {
	for {
		if err := f.runConn(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn("websocket feed disconnected", zap.Error(err))
		}
		f.healthy.Store(false)
		select {
		case <-ctx.Done():
			f.logger.Info("websocket feed stopped")
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *WSFeed) runConn(ctx context.Context) error {
	f.logger.Info("ws connect start", zap.String("url", f.url))
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The watcher must not outlive this connection, or every reconnect
	// cycle parks one goroutine until shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	f.healthy.Store(true)
	f.logger.Info("ws connect success", zap.String("url", f.url))

	for {
		if f.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		start := time.Now()
		if err := f.handler(ctx, data); err != nil {
			metrics.EventsTotal.WithLabelValues("failed").Inc()
			f.logger.Warn("price update handler error on direct feed", zap.Error(err))
			continue
		}
		metrics.EventsTotal.WithLabelValues("processed").Inc()
		metrics.EventHandleDuration.Observe(time.Since(start).Seconds())
	}
}
