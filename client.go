// Package mqttclient is the public handle of this module (§4.G): an
// asynchronous MQTT client that owns a protocol engine, a reconnecting
// network loop, and the bookkeeping that turns engine events into
// Token-based completions and message callbacks. Grounded on the
// teacher's client.go Client type, generalized from a one-shot
// connect-subscribe-serve sequence into a long-lived, reconnecting
// session with exactly the QoS and persistence guarantees §3/§4.E name.
package mqttclient

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/driftwave/mqttclient/engine"
	"github.com/driftwave/mqttclient/internal/metrics"
	"github.com/driftwave/mqttclient/internal/trace"
	"github.com/driftwave/mqttclient/ioloop"
	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
	"github.com/driftwave/mqttclient/transport"
)

// Client is one MQTT client identity: one ClientID, one session, one
// reconnecting connection to one broker URL. Safe for concurrent use —
// every exported method either only reads immutable fields or goes
// through the loop's own synchronization.
type Client struct {
	opts Options
	url  *url.URL

	tables *session.Tables
	engine *engine.Engine
	loop   *ioloop.Loop

	metrics *metrics.Client
	log     *zap.Logger
	pool    *ants.Pool

	tokens *tokenStore

	onMessageFn func(topic string, payload []byte, qos uint8, retained bool) bool

	mu           sync.Mutex
	connectToken *Token
	runCancel    context.CancelFunc
	runDone      chan struct{}
	destroyed    bool
}

// New builds a Client from opts without dialing anything; call Connect to
// start the reconnecting network loop.
func New(opts ...Option) (*Client, error) {
	options := newOptions(opts...)
	if err := options.validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(options.URL)
	if err != nil {
		return nil, invalidArgument("URL", err)
	}

	log := trace.New(trace.Config{Level: options.TraceLevel, FilePath: options.TraceFile})
	m := metrics.New(options.ClientID)
	if err := m.Register(); err != nil {
		log.Warn("metrics registration failed, continuing without them", zap.Error(err))
	}

	c := &Client{
		opts:    options,
		url:     u,
		tables:  session.NewTables(),
		metrics: m,
		log:     log,
		tokens:  newTokenStore(),
	}

	if options.AsyncCallbacks {
		pool, err := ants.NewPool(options.CallbackPoolSize)
		if err != nil {
			return nil, err
		}
		c.pool = pool
	}

	c.engine = engine.New(options.ClientID, options.Version, c.tables, options.Store, options.Persistent, options.ReceiveMax, options.KeepAlive, hooks{c})

	dialer := transport.DialerFor(u, transport.Config{TLS: options.TLSConfig, WSPath: options.WSPath})
	addr, err := transport.HostPort(u)
	if err != nil {
		return nil, invalidArgument("URL", err)
	}
	c.loop = ioloop.New(c.engine, dialer, addr, hooks{c}, log, options.MinRetryInterval, options.MaxRetryInterval, options.ConnectTimeout)

	return c, nil
}

// ID returns this client's identifier, as sent in every CONNECT.
func (c *Client) ID() string { return c.opts.ClientID }

// IsConnected reports whether the engine's lifecycle state machine is
// currently Connected (§4.E).
func (c *Client) IsConnected() bool { return c.engine.State() == engine.Connected }

// Connect starts the reconnecting network loop and returns a Token that
// completes the first time the connection reaches CONNACK success.
// Cancelling ctx stops the loop and any future reconnect attempts.
func (c *Client) Connect(ctx context.Context) *Token {
	token := c.tokens.new()

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		c.tokens.resolve(token.id, nil, ErrClientDestroyed)
		return token
	}
	if c.runCancel != nil {
		c.mu.Unlock()
		c.tokens.resolve(token.id, nil, nil) // already connecting/connected
		return token
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.connectToken = token
	c.runCancel = cancel
	c.runDone = make(chan struct{})
	runDone := c.runDone
	c.mu.Unlock()

	c.metrics.RefreshUptime(runCtx.Done())

	go func() {
		defer close(runDone)
		if err := c.loop.Run(runCtx); err != nil {
			c.log.Info("network loop stopped", zap.String("client_id", c.opts.ClientID), zap.Error(err))
		}
		c.tokens.failAll(ErrDisconnected)
		c.mu.Lock()
		c.runCancel = nil
		c.mu.Unlock()
	}()

	return token
}

// buildConnect assembles the CONNECT packet for this client's identity,
// grounded on client.go's Connect but generalized to carry the will,
// credentials, and persistent-session flag Options exposes.
func (c *Client) buildConnect() *packet.CONNECT {
	connect := c.engine.BuildConnect(c.opts.CleanStart, c.opts.Username, c.opts.Password)
	if c.opts.Will != nil {
		connect.WillTopic = c.opts.Will.Topic
		connect.WillPayload = c.opts.Will.Payload
	}
	return connect
}

// Disconnect sends DISCONNECT and stops the network loop. The returned
// Token completes once the loop goroutine has exited.
func (c *Client) Disconnect(ctx context.Context) *Token {
	token := c.tokens.new()

	c.mu.Lock()
	cancel, done := c.runCancel, c.runDone
	c.mu.Unlock()
	if cancel == nil {
		c.tokens.resolve(token.id, nil, ErrNotConnected)
		return token
	}

	if disc := c.engine.BuildDisconnect(); disc != nil {
		_ = c.loop.Submit(ctx, disc)
	}
	cancel()

	go func() {
		<-done
		c.tokens.resolve(token.id, nil, nil)
	}()
	return token
}

// Publish sends a QoS 0/1/2 message; the returned Token completes
// immediately for QoS 0 and on the terminal ack for QoS 1/2 (§3, §4.E).
func (c *Client) Publish(topic string, payload []byte, qos uint8, retain bool) *Token {
	return c.PublishMessage(&packet.Message{TopicName: topic, Content: payload}, qos, retain, nil)
}

// PublishMessage is Publish with MQTT 5 properties attached.
func (c *Client) PublishMessage(msg *packet.Message, qos uint8, retain bool, props *packet.PublishProperties) *Token {
	token := c.tokens.new()
	if !c.loopRunning() {
		c.tokens.resolve(token.id, nil, ErrNotConnected)
		return token
	}

	pkt, err := c.engine.SubmitPublish(engine.PublishRequest{
		Topic: msg.TopicName, Payload: msg.Content, QoS: qos, Retain: retain, Props: props, Token: token.id,
	})
	if err != nil {
		c.tokens.resolve(token.id, nil, err)
		return token
	}
	if pkt == nil {
		// Queued behind the Receive-Maximum window (§4.D); OnPublishToken
		// resolves it once DrainPending lets it onto the wire and its ack
		// arrives.
		c.metrics.PendingQueueDepth.Set(float64(c.tables.PendingLen()))
		return token
	}
	if err := c.loop.Submit(context.Background(), pkt); err != nil {
		c.tokens.resolve(token.id, nil, err)
		return token
	}
	c.metrics.PacketSent.Inc()
	if qos == 0 {
		c.tokens.resolve(token.id, nil, nil)
	}
	return token
}

// Subscribe subscribes to a single topic filter at the given maximum QoS.
func (c *Client) Subscribe(filter string, qos uint8) *Token {
	return c.SubscribeMany([]packet.Subscription{{TopicFilter: filter, MaximumQoS: qos}})
}

// SubscribeMany subscribes to several topic filters in one SUBSCRIBE
// packet; the Token's Result() is a []packet.ReasonCode once it
// completes, one per filter in the order given.
func (c *Client) SubscribeMany(subs []packet.Subscription) *Token {
	token := c.tokens.new()
	if !c.loopRunning() {
		c.tokens.resolve(token.id, nil, ErrNotConnected)
		return token
	}
	pkt := c.engine.BuildSubscribe(subs, token.id)
	if err := c.loop.Submit(context.Background(), pkt); err != nil {
		c.tokens.resolve(token.id, nil, err)
	}
	return token
}

// Unsubscribe removes a single topic filter subscription.
func (c *Client) Unsubscribe(filter string) *Token {
	return c.UnsubscribeMany([]packet.Subscription{{TopicFilter: filter}})
}

// UnsubscribeMany removes several topic filter subscriptions in one
// UNSUBSCRIBE packet.
func (c *Client) UnsubscribeMany(subs []packet.Subscription) *Token {
	token := c.tokens.new()
	if !c.loopRunning() {
		c.tokens.resolve(token.id, nil, ErrNotConnected)
		return token
	}
	pkt := c.engine.BuildUnsubscribe(subs, token.id)
	if err := c.loop.Submit(context.Background(), pkt); err != nil {
		c.tokens.resolve(token.id, nil, err)
	}
	return token
}

// OnMessage registers the callback invoked for every inbound PUBLISH,
// inline on the network-loop goroutine by default, or on the
// WithAsyncCallbacks pool when configured (§5). The return value is the
// arrival decision for QoS 1/2 messages: true acks the message, false
// refuses it and leaves it unacknowledged so the broker redelivers it.
// The return value is ignored for QoS 0, which has no ack to withhold.
func (c *Client) OnMessage(fn func(topic string, payload []byte, qos uint8, retained bool) bool) {
	c.onMessageFn = fn
}

// deliver runs the registered callback and reports its accept/refuse
// decision. Even when dispatched onto the async pool, the loop goroutine
// blocks for the answer — the engine's ack decision for QoS>0 is not
// optional, only the goroutine it runs on is (§5).
func (c *Client) deliver(msg *packet.Message, qos uint8, retained bool) bool {
	c.metrics.PacketReceived.Inc()
	fn := c.onMessageFn
	if fn == nil {
		return true
	}
	if c.pool == nil {
		return fn(msg.TopicName, msg.Content, qos, retained)
	}
	done := make(chan bool, 1)
	if err := c.pool.Submit(func() { done <- fn(msg.TopicName, msg.Content, qos, retained) }); err != nil {
		return fn(msg.TopicName, msg.Content, qos, retained)
	}
	return <-done
}

// WaitForCompletion blocks on token until it completes or timeout
// elapses (0 means wait indefinitely), returning its eventual error.
func (c *Client) WaitForCompletion(token *Token, timeout time.Duration) error {
	if timeout <= 0 {
		token.Wait()
		return token.Error()
	}
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}

// PendingTokens lists the bookkeeping ids of every operation still
// awaiting completion — publishes without a terminal ack, subscribes
// without a SUBACK, and so on.
func (c *Client) PendingTokens() []uint64 {
	return c.tokens.pending()
}

// Destroy disconnects (if connected), fails every still-pending token,
// and releases the callback pool. It blocks up to timeout for a clean
// disconnect before giving up.
func (c *Client) Destroy(timeout time.Duration) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.mu.Unlock()

	token := c.Disconnect(context.Background())
	ok := token.WaitTimeout(timeout)
	c.tokens.failAll(ErrClientDestroyed)
	if c.pool != nil {
		c.pool.Release()
	}
	if !ok {
		return ErrTimeout
	}
	return nil
}

func (c *Client) loopRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCancel != nil && !c.destroyed
}
