package mqttclient

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/golang-io/requests"

	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/store"
)

// WillMessage is the last-will-and-testament the broker publishes on this
// client's behalf if the connection drops without a clean DISCONNECT.
type WillMessage struct {
	Topic   string
	Payload []byte
	QoS     uint8
	Retain  bool
}

// Options configures a Client. Struct tags drive the validator pass New
// runs before dialing anything — the same "fail fast on bad input" shape
// the teacher's newOptions never had, added per §7's input-validation
// requirement.
type Options struct {
	URL      string `validate:"required,url"`
	ClientID string `validate:"required,min=1,max=65535"`
	Version  byte   `validate:"oneof=3 4 5"`

	Username string
	Password string
	Will     *WillMessage

	CleanStart bool
	Persistent bool
	Store      store.Store

	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	ReceiveMax     int

	MinRetryInterval time.Duration
	MaxRetryInterval time.Duration

	Subscriptions []packet.Subscription

	AsyncCallbacks   bool
	CallbackPoolSize int

	TLSConfig *tls.Config
	WSPath    string

	TraceLevel string
	TraceFile  string
}

// Option mutates an Options value, grounded on the teacher's options.go
// functional-options pattern and generalized with the knobs a persistent,
// reconnecting, ack-tracking client needs that a fire-and-forget broker
// connection never did.
type Option func(*Options)

func newOptions(opts ...Option) Options {
	options := Options{
		URL:              "mqtt://127.0.0.1:1883",
		ClientID:         "mqttclient-" + requests.GenId(),
		Version:          packet.VERSION311,
		CleanStart:       true,
		KeepAlive:        30 * time.Second,
		ConnectTimeout:   10 * time.Second,
		ReceiveMax:       0, // engine.New interprets 0 as "use the protocol max"
		MinRetryInterval: time.Second,
		MaxRetryInterval: 2 * time.Minute,
		CallbackPoolSize: 32,
	}
	for _, o := range opts {
		o(&options)
	}
	return options
}

func (o Options) validate() error {
	v := validator.New()
	if err := v.Struct(o); err != nil {
		return invalidArgument("options", err)
	}
	if o.MinRetryInterval > 0 && o.MaxRetryInterval > 0 && o.MinRetryInterval > o.MaxRetryInterval {
		return invalidArgument("RetryInterval", fmt.Errorf("min %s exceeds max %s", o.MinRetryInterval, o.MaxRetryInterval))
	}
	// MQTT's keepalive is a two-byte seconds field on the wire (§6): a
	// negative value or one that overflows uint16 seconds can never be
	// encoded, so reject it here instead of truncating silently later.
	if o.KeepAlive < 0 || o.KeepAlive > time.Duration(65535)*time.Second {
		return invalidArgument("KeepAlive", fmt.Errorf("%s does not fit the protocol's 16-bit seconds field", o.KeepAlive))
	}
	if o.Persistent && o.Store == nil {
		return invalidArgument("Store", fmt.Errorf("a persistent session requires a non-nil Store"))
	}
	return nil
}

// WithURL sets the broker URL, e.g. "mqtt://host:1883", "mqtts://host:8883",
// "ws://host/mqtt", "wss://host/mqtt".
func WithURL(url string) Option {
	return func(o *Options) { o.URL = url }
}

// WithClientID overrides the generated default client identifier.
func WithClientID(id string) Option {
	return func(o *Options) { o.ClientID = id }
}

// WithVersion selects the protocol version, accepting either the wire
// byte (packet.VERSION310/311/500) or one of "3.1", "3.1.1", "5.0".
func WithVersion[T ~string | ~byte](version T) Option {
	return func(o *Options) {
		switch v := any(version).(type) {
		case byte:
			o.Version = v
		case string:
			switch v {
			case "5.0", "5.0.0":
				o.Version = packet.VERSION500
			case "3.1.1":
				o.Version = packet.VERSION311
			case "3.1":
				o.Version = packet.VERSION310
			default:
				panic(fmt.Errorf("mqttclient: version %q not supported", v))
			}
		}
	}
}

// WithCredentials sets the plain username/password CONNECT fields.
func WithCredentials(username, password string) Option {
	return func(o *Options) { o.Username, o.Password = username, password }
}

// WithJWTCredentials signs claims with method and key, placing the
// resulting compact JWT in the CONNECT password field alongside username
// — additive to WithCredentials, for brokers that authenticate bearer
// tokens as the password rather than a shared secret.
func WithJWTCredentials(username string, claims jwt.Claims, method jwt.SigningMethod, key any) Option {
	return func(o *Options) {
		signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			panic(fmt.Errorf("mqttclient: WithJWTCredentials: %w", err))
		}
		o.Username, o.Password = username, signed
	}
}

// WithWill attaches a last-will-and-testament message. Only topic and
// payload reach the CONNECT: the will is always sent with QoS 1 and
// Retain 0, whatever qos and retain are given here.
func WithWill(topic string, payload []byte, qos uint8, retain bool) Option {
	return func(o *Options) { o.Will = &WillMessage{Topic: topic, Payload: payload, QoS: qos, Retain: retain} }
}

// WithCleanStart controls the CONNECT clean-session/clean-start flag.
// Combine with WithPersistentSession to resume session state across
// reconnects instead of starting fresh every time.
func WithCleanStart(clean bool) Option {
	return func(o *Options) { o.CleanStart = clean }
}

// WithPersistentSession enables durable in-flight bookkeeping backed by
// st (§4.C) and implies CleanStart=false, since a persistent session has
// state worth resuming.
func WithPersistentSession(st store.Store) Option {
	return func(o *Options) { o.Persistent, o.CleanStart, o.Store = true, false, st }
}

// WithKeepAlive sets the keepalive interval; 0 disables PINGREQ entirely.
func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) { o.KeepAlive = d }
}

// WithConnectTimeout bounds a single dial plus CONNECT/CONNACK round trip;
// an attempt without a successful CONNACK by then is dropped and the
// reconnect backoff applies (§9). There are no per-operation timeouts.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

// WithReceiveMaximum caps outbound QoS>0 in-flight publishes (§4.D).
func WithReceiveMaximum(n int) Option {
	return func(o *Options) { o.ReceiveMax = n }
}

// WithRetryBounds sets the exponential reconnect backoff's min/max
// bounds (§4.E, §9).
func WithRetryBounds(min, max time.Duration) Option {
	return func(o *Options) { o.MinRetryInterval, o.MaxRetryInterval = min, max }
}

// WithSubscriptions appends topic filters to Options.Subscriptions. The
// client does not read that field: no SUBSCRIBE is sent for these filters
// on connect or reconnect.
func WithSubscriptions(subs ...packet.Subscription) Option {
	return func(o *Options) { o.Subscriptions = append(o.Subscriptions, subs...) }
}

// WithAsyncCallbacks runs the OnMessage callback on a bounded goroutine
// pool (github.com/panjf2000/ants/v2) instead of inline on the
// network-loop goroutine (§5). The loop still waits for the callback's
// accept/refuse answer, so a slow callback still stalls reads; token
// completions do not run on the pool.
func WithAsyncCallbacks(poolSize int) Option {
	return func(o *Options) { o.AsyncCallbacks, o.CallbackPoolSize = true, poolSize }
}

// WithTLSConfig sets the TLS configuration used for "mqtts"/"tls"/"wss"
// dials.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *Options) { o.TLSConfig = cfg }
}

// WithWebsocketPath overrides the default "/mqtt" path used for ws/wss
// dials.
func WithWebsocketPath(path string) Option {
	return func(o *Options) { o.WSPath = path }
}

// WithTrace configures the structured logging sink (internal/trace):
// level is one of "debug","info","warn","error","off"; file, if set,
// tees output to a lumberjack-rotated log file in addition to stderr.
func WithTrace(level, file string) Option {
	return func(o *Options) { o.TraceLevel, o.TraceFile = level, file }
}
