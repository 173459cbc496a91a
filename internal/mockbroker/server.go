// Package mockbroker is an in-process MQTT broker used only by this
// module's own integration tests. It is adapted from the teacher's
// broker-side files (server.go, conn.go's defaultHandler, mem_topic.go,
// topic/trie.go) and is never exposed as a public API — serving
// MQTT broker-side is an explicit non-goal of this module; this package
// exists solely to give the client engine/ioloop something real to
// dial in package tests.
package mockbroker

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/driftwave/mqttclient/internal/mockbroker/topic"
	"github.com/driftwave/mqttclient/packet"
)

const shutdownPollIntervalMax = 500 * time.Millisecond
const stackBufSize = 64 << 10

// Handler responds to one decoded packet on a connection.
type Handler interface {
	ServeMQTT(ResponseWriter, packet.Packet)
}

type HandlerFunc func(ResponseWriter, packet.Packet)

func (f HandlerFunc) ServeMQTT(rw ResponseWriter, r packet.Packet) { f(rw, r) }

type serverHandler struct {
	s *Server
}

func (s serverHandler) ServeMQTT(rw ResponseWriter, p packet.Packet) {
	handler := s.s.Handler
	if handler == nil {
		handler = defaultHandler{}
	}
	handler.ServeMQTT(rw, p)
}

// ResponseWriter sends one reply packet back down the connection that
// produced the request being handled.
type ResponseWriter interface {
	OnSend(pkt packet.Packet) error
}

type response struct {
	conn   *conn
	packet packet.Packet
}

func (w *response) OnSend(pkt packet.Packet) error {
	w.conn.mu.Lock()
	defer w.conn.mu.Unlock()
	return pkt.Pack(w.conn)
}

// ConnState mirrors net/http's connection lifecycle, reused for the same
// reason the teacher reused it from net/http: Shutdown needs to know
// which connections are idle before the listener is torn down.
type ConnState int

const (
	StateNew ConnState = iota
	StateActive
	StateIdle
	StateHijacked
	StateClosed
)

// ErrAbortHandler is a sentinel panic value that ends a connection
// without logging a stack trace.
var ErrAbortHandler = errors.New("mockbroker: abort handler")

// ErrServerClosed is returned by Serve/ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("mockbroker: server closed")

// Auth is a static username/password table; authenticate denies a
// CONNECT whose username isn't present or whose password mismatches.
type Auth map[string]string

func (a Auth) authenticate(username, password string) bool {
	if len(a) == 0 {
		return true
	}
	want, ok := a[username]
	return ok && want == password
}

// Server is a minimal standalone MQTT broker, good enough to drive this
// module's integration tests against: it accepts CONNECT, tracks topic
// subscriptions in memory, and round-trips QoS 0/1/2 publishes.
type Server struct {
	Handler          Handler
	WebsocketHandler websocket.Handler
	TLSConfig        *tls.Config
	ConnState        func(net.Conn, ConnState)
	Auth             Auth

	inShutdown atomic.Bool

	mu            sync.RWMutex
	listeners     map[*net.Listener]struct{}
	activeConn    map[*conn]struct{}
	listenerGroup sync.WaitGroup

	memorySubscribed *MemorySubscribed
}

// NewServer constructs a Server whose listeners are torn down when ctx
// is canceled — the same cancel-triggers-Shutdown wiring the teacher's
// client.go uses for its own connection lifecycle.
func NewServer(ctx context.Context, auth Auth) *Server {
	s := &Server{
		activeConn: make(map[*conn]struct{}),
		listeners:  make(map[*net.Listener]struct{}),
		Auth:       auth,
	}
	s.memorySubscribed = NewMemorySubscribed(s)

	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.mu.Lock()
	lnerr := s.closeListenersLocked()
	s.mu.Unlock()
	s.listenerGroup.Wait()

	pollIntervalBase := time.Millisecond
	nextPollInterval := func() time.Duration {
		interval := pollIntervalBase + time.Duration(rand.Intn(int(pollIntervalBase/10+1)))
		pollIntervalBase *= 2
		if pollIntervalBase > shutdownPollIntervalMax {
			pollIntervalBase = shutdownPollIntervalMax
		}
		return interval
	}

	timer := time.NewTimer(nextPollInterval())
	defer timer.Stop()
	for {
		if s.closeIdleConns() {
			return lnerr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(nextPollInterval())
		}
	}
}

func (s *Server) closeIdleConns() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiescent := true
	for c := range s.activeConn {
		st, unixSec := c.getState()
		if st == StateNew && unixSec < time.Now().Unix()-5 {
			st = StateIdle
		}
		if st != StateIdle || unixSec == 0 {
			quiescent = false
			continue
		}
		_ = c.rwc.Close()
		delete(s.activeConn, c)
	}
	return quiescent
}

func (s *Server) closeListenersLocked() error {
	var err error
	for ln := range s.listeners {
		if cerr := (*ln).Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) newConn(rwc net.Conn) *conn {
	return &conn{server: s, rwc: rwc, subscribeTopics: topic.NewMemoryTrie(), inFlight: newInFlight()}
}

// Serve accepts connections from l until it is closed or Shutdown runs.
func (s *Server) Serve(l net.Listener) error {
	defer l.Close()
	if !s.trackListener(&l, true) {
		return ErrServerClosed
	}
	defer s.trackListener(&l, false)

	ctx := context.Background()
	for {
		rw, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			return err
		}
		c := s.newConn(rw)
		c.setState(c.rwc, StateNew, true)
		go c.serve(ctx)
	}
}

func (s *Server) trackConn(c *conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.activeConn[c] = struct{}{}
	} else {
		delete(s.activeConn, c)
	}
}

func (s *Server) trackListener(ln *net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.shuttingDown() {
			return false
		}
		s.listeners[ln] = struct{}{}
		s.listenerGroup.Add(1)
	} else {
		delete(s.listeners, ln)
		s.listenerGroup.Done()
	}
	return true
}

func (s *Server) shuttingDown() bool { return s.inShutdown.Load() }

// ListenAndServe starts a plain TCP listener at addr (e.g. "127.0.0.1:1883").
// Unlike the teacher's broker-facing ListenAndServe, this takes a bare
// address instead of functional Options — the mock broker has no reason
// to depend on the public client package's option type.
func (s *Server) ListenAndServe(addr string) error {
	if s.shuttingDown() {
		return ErrServerClosed
	}
	u, err := url.Parse("mqtt://" + addr)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return err
	}
	log.Printf("mockbroker serve: %s", u.Host)
	return s.Serve(ln)
}

func (s *Server) ServeTLS(l net.Listener, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return err
	}
	tlsListener := tls.NewListener(l, &tls.Config{Certificates: []tls.Certificate{cert}})
	return s.Serve(tlsListener)
}

// ListenAndServeTLS mirrors ListenAndServe over TLS.
func (s *Server) ListenAndServeTLS(addr, certFile, keyFile string) error {
	if s.shuttingDown() {
		return ErrServerClosed
	}
	u, err := url.Parse("mqtts://" + addr)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return err
	}
	log.Printf("mockbroker serve(tls): %s", u.Host)
	return s.ServeTLS(ln, certFile, keyFile)
}

// ListenAndServeWebsocket starts a WebSocket listener, the broker-side
// counterpart to the client handle's "ws"/"wss" dial scheme.
func (s *Server) ListenAndServeWebsocket(addr string) error {
	if s.shuttingDown() {
		return ErrServerClosed
	}
	u, err := url.Parse("ws://" + addr)
	if err != nil {
		return err
	}
	s.WebsocketHandler = func(ws *websocket.Conn) {
		ws.PayloadType = websocket.BinaryFrame
		c := s.newConn(ws)
		c.setState(c.rwc, StateNew, true)
		c.serve(context.Background())
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return err
	}
	log.Printf("mockbroker serve(ws): %s", u.Host)
	return http.Serve(ln, s.WebsocketHandler)
}
