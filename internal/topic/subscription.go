package topic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

// Handler receives the raw message of every delivery on the subscribed topic.
type Handler func(message json.RawMessage)

// Logger is the logging interface used by subscriptions.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type options struct {
	dialer  *websocket.Dialer
	logger  Logger
	onState func(connected bool)
}

// Option configures a Subscription.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithStateHandler registers a callback run when the socket opens (true)
// and when it closes (false).
func WithStateHandler(fn func(connected bool)) Option {
	return func(o *options) { o.onState = fn }
}

func buildOptions(opts []Option) options {
	o := options{dialer: websocket.DefaultDialer, logger: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Subscription is one socket bound to one topic.
//
// Every Subscription owns its own connection; subscribing twice to the same
// topic opens two sockets. A closed subscription is never reopened.
type Subscription struct {
	topic     Topic
	onMessage Handler
	opts      options

	cancel context.CancelFunc
	done   chan struct{}

	// mu guards conn and closed, and serialises writes on conn.
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	connected atomic.Bool
}

// Subscribe opens a socket to endpoint (ws:// or wss:// URL of /ws) in the
// background and subscribes it to t. onMessage runs on the subscription's
// read goroutine for every delivery whose topic is t; frames that are not
// valid JSON are logged and dropped.
//
// The returned Subscription is not connected yet; use WithStateHandler or
// IsConnected to observe the open.
func Subscribe(ctx context.Context, endpoint string, t Topic, onMessage Handler, opts ...Option) *Subscription {
	return subscribe(ctx, endpoint, t, onMessage, buildOptions(opts))
}

// SubscribeJSON is Subscribe with each message decoded into T. Messages
// that do not decode are logged and dropped.
func SubscribeJSON[T any](ctx context.Context, endpoint string, t Topic, onMessage func(T), opts ...Option) *Subscription {
	o := buildOptions(opts)
	return subscribe(ctx, endpoint, t, func(raw json.RawMessage) {
		var msg T
		if err := json.Unmarshal(raw, &msg); err != nil {
			o.logger.Warn("dropping undecodable topic message", "topic", t, "error", err)
			return
		}
		onMessage(msg)
	}, o)
}

func subscribe(ctx context.Context, endpoint string, t Topic, onMessage Handler, o options) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		topic:     t,
		onMessage: onMessage,
		opts:      o,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.run(ctx, endpoint)
	return s
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// IsConnected reports whether the socket is open and subscribed.
func (s *Subscription) IsConnected() bool {
	return s.connected.Load()
}

// Done is closed once the subscription has ended for good.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Send publishes message on the subscription's topic. While the socket is
// not open the message is dropped and ErrNotConnected returned; nothing
// is queued.
func (s *Subscription) Send(message any) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding topic message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected.Load() || s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.WriteJSON(Request{Action: ActionPublish, Topic: s.topic, Message: raw})
}

// Close closes the socket. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected.Store(false)
	conn := s.conn
	if conn != nil {
		//nolint:errcheck // best-effort close frame
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
	}
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Subscription) run(ctx context.Context, endpoint string) {
	defer close(s.done)

	conn, _, err := s.opts.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		s.opts.logger.Debug("topic connection failed", "topic", s.topic, "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	err = conn.WriteJSON(Request{Action: ActionSubscribe, Topic: s.topic})
	if err == nil {
		s.connected.Store(true)
	}
	s.mu.Unlock()

	if err != nil {
		s.opts.logger.Warn("topic subscribe failed", "topic", s.topic, "error", err)
		conn.Close()
		return
	}
	s.notify(true)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		s.connected.Store(false)
		conn.Close()
		s.notify(false)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.opts.logger.Debug("topic connection closed", "topic", s.topic, "error", err)
			return
		}
		s.dispatch(data)
	}
}

func (s *Subscription) dispatch(data []byte) {
	var d Delivery
	if err := json.Unmarshal(data, &d); err != nil {
		s.opts.logger.Warn("dropping malformed topic frame", "topic", s.topic, "error", err)
		return
	}
	if d.Topic != s.topic {
		return
	}
	s.onMessage(d.Message)
}

func (s *Subscription) notify(connected bool) {
	if s.opts.onState != nil {
		s.opts.onState(connected)
	}
}
