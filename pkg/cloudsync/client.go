package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/hubward/hubd/pkg/credentials"
	"github.com/hubward/hubd/pkg/logging"
)

// State describes the client's connection lifecycle.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Client maintains the Hub's duplex channel to the Cloud. It owns at most
// one physical connection at a time, reconnects with exponential backoff on
// any loss, heartbeats while connected, and routes inbound envelopes to the
// handler registry.
//
// A Client is created once per Hub process, started at boot and stopped at
// shutdown. All of its work runs on its own goroutines; no method blocks
// the caller beyond Stop, which waits for the run loop to exit.
type Client struct {
	cfg      *Config
	creds    credentials.Provider
	registry *Registry

	state atomic.Int32

	mu          sync.RWMutex
	conn        *websocket.Conn
	sessionID   string
	connectedAt time.Time
	log         *slog.Logger

	writeMu sync.Mutex // no two writes may interleave on the wire

	runCancel context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
	stopOnce  sync.Once

	connections atomic.Int32
	messagesIn  atomic.Int64
	messagesOut atomic.Int64
	heartbeats  atomic.Int64
	lastAckAt   atomic.Value // time.Time
}

// NewClient creates a sync client. The registry binds inbound message types
// to handlers and is read-only once the client starts.
func NewClient(cfg *Config, provider credentials.Provider, registry *Registry) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("credential provider is required")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Client{
		cfg:      cfg,
		creds:    provider,
		registry: registry,
		log:      logging.Nop(),
	}, nil
}

// Start launches the connect/reconnect loop in the background. It returns
// ErrAlreadyStarted on a second call.
func (c *Client) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.runCancel = cancel
	c.done = done
	c.mu.Unlock()
	go c.run(ctx, done)
	return nil
}

// Stop tears the channel down: it cancels any pending backoff sleep or
// in-progress connect, closes the connection if open, and waits for the
// heartbeat and read goroutines to finish. Stop is idempotent and safe to
// call from any goroutine. After Stop returns no heartbeat is sent and no
// reconnect is attempted.
func (c *Client) Stop() {
	if !c.started.Load() {
		return
	}
	c.stopOnce.Do(func() {
		c.state.Store(int32(StateClosing))

		c.mu.Lock()
		cancel := c.runCancel
		done := c.done
		conn := c.conn
		c.mu.Unlock()

		cancel()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "hub shutting down")
		}
		<-done
	})
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// IsConnected reports whether the channel is currently established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// SessionID returns the identifier of the current (or last) session.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// SetLogger sets the operational logger for the client.
func (c *Client) SetLogger(log *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if log != nil {
		c.log = log
	} else {
		c.log = logging.Nop()
	}
}

func (c *Client) logger() *slog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// Send serializes the envelope and writes it to the active connection.
// Safe for concurrent use; callers are serialized so that writes never
// interleave their bytes on the wire. With no active connection the message
// is dropped and ErrNotConnected returned: Hub→Cloud delivery is
// at-most-once with no outbound queue.
func (c *Client) Send(ctx context.Context, env *Envelope) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || c.State() != StateConnected {
		c.logger().Warn("dropping outbound message, not connected", "type", env.Type)
		return ErrNotConnected
	}

	data, err := env.Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write %s message: %w", env.Type, err)
	}
	c.messagesOut.Add(1)
	return nil
}

// SendUserSync sends a user directory sync event. Fire-and-forget: if the
// channel is down the event is dropped.
func (c *Client) SendUserSync(ctx context.Context, data map[string]any) error {
	return c.Send(ctx, NewUserSync(data))
}

// SendPluginInstalled notifies the Cloud that a plugin was installed.
// Fire-and-forget like SendUserSync.
func (c *Client) SendPluginInstalled(ctx context.Context, pluginID, version string) error {
	return c.Send(ctx, NewPluginInstalled(pluginID, version))
}

// run is the connect/reconnect loop. It exits only when the run context is
// cancelled by Stop.
func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.state.Store(int32(StateDisconnected))

	backoff := NewBackoff(c.cfg.ReconnectDelay, c.cfg.MaxReconnectDelay)
	authFailures := 0

	for {
		if ctx.Err() != nil {
			return
		}
		c.state.Store(int32(StateConnecting))
		err := c.runConnection(ctx, backoff, &authFailures)
		c.state.Store(int32(StateDisconnected))
		if ctx.Err() != nil {
			return
		}

		delay := backoff.Next()
		c.logger().Warn("cloud connection down, retrying", "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runConnection performs a single connect attempt and, on success, services
// the connection until it fails or the run context is cancelled. The
// returned error is the reason the connection is gone.
func (c *Client) runConnection(ctx context.Context, backoff *Backoff, authFailures *int) error {
	creds, err := c.creds.Resolve(ctx)
	if err != nil {
		// No credentials yet is transient: enrollment may complete before
		// the next attempt.
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}
	if creds.TokenExpired(time.Now()) {
		c.logger().Warn("auth token is expired, cloud will likely reject the handshake", "hub_id", creds.HubID)
	}

	endpoint, err := hubEndpoint(creds)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	conn, resp, err := websocket.Dial(dialCtx, endpoint, nil)
	cancel()
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.noteAuthFailure(authFailures)
		}
		return fmt.Errorf("failed to connect to cloud: %w", err)
	}
	*authFailures = 0
	backoff.Reset()

	sessionID := uuid.NewString()
	c.mu.Lock()
	c.conn = conn
	c.sessionID = sessionID
	c.connectedAt = time.Now()
	c.mu.Unlock()
	c.state.Store(int32(StateConnected))
	c.connections.Add(1)
	c.logger().Info("connected to cloud", "hub_id", creds.HubID, "session_id", sessionID)

	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect(sessionID)
	}

	// Heartbeat and reader are bound to this connection instance and are
	// both gone before the next attempt starts.
	connCtx, connCancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.heartbeatLoop(connCtx)
	}()

	readErr := c.readLoop(connCtx, conn)

	connCancel()
	wg.Wait()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	c.state.Store(int32(StateDisconnected))

	if c.cfg.OnDisconnect != nil {
		if ctx.Err() != nil {
			c.cfg.OnDisconnect(nil)
		} else {
			c.cfg.OnDisconnect(readErr)
		}
	}
	return readErr
}

// noteAuthFailure counts consecutive handshake rejections. Retrying
// continues regardless: a rejected token is indistinguishable from one
// about to be rotated by the enrollment flow, so the client escalates to
// the error log and the callback instead of giving up.
func (c *Client) noteAuthFailure(authFailures *int) {
	*authFailures++
	threshold := c.cfg.AuthFailureThreshold
	if threshold <= 0 || *authFailures < threshold {
		return
	}
	c.logger().Error("cloud repeatedly rejected our credentials", "consecutive", *authFailures)
	if c.cfg.OnAuthFailure != nil && *authFailures == threshold {
		c.cfg.OnAuthFailure(*authFailures)
	}
}

// readLoop pulls one message at a time off the connection and routes it.
// Only a transport failure ends the loop; a malformed message, an unknown
// type or a failing handler never tears down the channel.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("cloud read failed: %w", err)
		}
		c.messagesIn.Add(1)

		env, err := DecodeEnvelope(data)
		if err != nil {
			c.logger().Warn("dropping malformed cloud message", "error", err)
			continue
		}
		c.dispatch(ctx, env)
	}
}

// dispatch routes one inbound envelope. Handlers run synchronously with
// respect to the reader: one message is fully handled before the next is
// read.
func (c *Client) dispatch(ctx context.Context, env *Envelope) {
	if env.Type == MessageTypeHeartbeatAck {
		c.lastAckAt.Store(time.Now())
	}

	h, ok := c.registry.Lookup(env.Type)
	if !ok {
		// Unknown types are expected from newer cloud versions.
		c.logger().Debug("no handler for cloud message type", "type", env.Type)
		return
	}
	if err := invoke(ctx, h, env); err != nil {
		c.logger().Error("cloud message handler failed", "type", env.Type, "error", err)
	}
}

// hubEndpoint builds the connect URL {cloud_url}/ws/hub/{hub_id}/?token={token}.
// The Cloud expects the bearer token in the query string, not a header.
// http/https base URLs are mapped to ws/wss.
func hubEndpoint(creds *credentials.Credentials) (string, error) {
	u, err := url.Parse(creds.CloudURL)
	if err != nil {
		return "", fmt.Errorf("invalid cloud URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/hub/" + creds.HubID + "/"
	q := url.Values{}
	q.Set("token", creds.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Stats is a point-in-time snapshot of channel counters.
type Stats struct {
	State            State
	SessionID        string
	ConnectedAt      time.Time
	Reconnects       int
	MessagesIn       int64
	MessagesOut      int64
	Heartbeats       int64
	LastHeartbeatAck time.Time
}

// Stats returns channel statistics.
func (c *Client) Stats() *Stats {
	c.mu.RLock()
	sessionID := c.sessionID
	connectedAt := c.connectedAt
	c.mu.RUnlock()

	reconnects := int(c.connections.Load()) - 1
	if reconnects < 0 {
		reconnects = 0
	}

	var lastAck time.Time
	if v := c.lastAckAt.Load(); v != nil {
		lastAck, _ = v.(time.Time)
	}

	return &Stats{
		State:            c.State(),
		SessionID:        sessionID,
		ConnectedAt:      connectedAt,
		Reconnects:       reconnects,
		MessagesIn:       c.messagesIn.Load(),
		MessagesOut:      c.messagesOut.Load(),
		Heartbeats:       c.heartbeats.Load(),
		LastHeartbeatAck: lastAck,
	}
}

// Uptime returns the duration since the current session was established,
// or zero when disconnected.
func (s *Stats) Uptime() time.Duration {
	if s.State != StateConnected || s.ConnectedAt.IsZero() {
		return 0
	}
	return time.Since(s.ConnectedAt)
}
