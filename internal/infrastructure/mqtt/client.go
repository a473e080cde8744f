package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gohome/internal/infrastructure/config"
)

// Client is the core's connection to the plugin bus.
//
// Subscriptions are remembered and replayed after every reconnect, and
// the retained gohome/system/status message tracks whether the core is up.
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	connected atomic.Bool
	lost      atomic.Bool

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	// mu guards the callbacks and logger.
	mu           sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the logging the client needs. *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler handles one message. It runs on a paho goroutine, so it
// must not block for long; a returned error is logged and counted.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker from cfg and waits for the first connection.
//
// The client reconnects on its own afterwards. The broker publishes an
// offline status on gohome/system/status if the core drops without Close.
//
// Returns ErrConnectionFailed when the broker cannot be reached within
// defaultConnectTimeout.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	if err := await(context.Background(), c.client.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// OnConnect runs asynchronously; callers may subscribe as soon as
	// Connect returns.
	c.setConnected(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
		logger:        noopLogger{},
	}
}

// await waits for token, ctx or timeout, whichever comes first, and wraps
// any failure in base.
func await(ctx context.Context, token pahomqtt.Token, timeout time.Duration, base error) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", base, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: timeout after %v", base, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", base, err)
	}
	return nil
}

func (c *Client) setConnected(v bool) {
	c.connected.Store(v)
	if v {
		metricConnected.Set(1)
	} else {
		metricConnected.Set(0)
	}
}

func (c *Client) handleConnect() {
	c.setConnected(true)
	if c.lost.Swap(false) {
		metricReconnects.Inc()
	}

	c.replaySubscriptions()
	c.client.Publish(Topics{}.SystemStatus(), 1, true, statusPayload(c.cfg.Broker.ClientID, StatusOnline, ""))

	c.mu.RLock()
	callback := c.onConnect
	c.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)
	c.lost.Store(true)
	c.log().Warn("MQTT connection lost", "error", err)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// replaySubscriptions resubscribes after a reconnect. Failures surface
// through the connection-lost handler on the next drop.
func (c *Client) replaySubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for filter, sub := range c.subscriptions {
		c.client.Subscribe(filter, sub.qos, c.wrapHandler(filter, sub.handler))
	}
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		payload := statusPayload(c.cfg.Broker.ClientID, StatusOffline, "graceful_shutdown")
		c.client.Publish(Topics{}.SystemStatus(), 1, true, payload).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck reports ErrNotConnected when the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a callback run on the first connect and every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for connection loss and handler failures.
// A nil logger disables logging.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts handler to paho. Panics are recovered, and both
// panics and returned errors are logged and counted against filter.
func (c *Client) wrapHandler(filter string, handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				metricHandlerFailures.WithLabelValues(filter).Inc()
				c.log().Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			metricHandlerFailures.WithLabelValues(filter).Inc()
			c.log().Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
