package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait             = 10 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultPingWindow     = 45 * time.Second
	signalBuffer          = 64

	eventStartCreation = "start_creation"
	eventSessionUpdate = "session_update"
	eventError         = "error"
)

// SocketOpts configures a [SocketChannel].
type SocketOpts struct {
	BaseURL        string // http(s) or ws(s) origin of the backend
	Namespace      string // defaults to /create
	Token          string // sent as a bearer token on the upgrade request
	ConnectTimeout time.Duration
	Logger         *log.Logger
	Dialer         *websocket.Dialer
}

// SocketChannel is a [Channel] speaking Socket.IO v5 over an Engine.IO v4 WebSocket.
//
// A dropped connection is retried once. If that attempt fails, or the
// reconnected socket drops too, a connect_error is emitted and the channel stays down.
type SocketChannel struct {
	endpoint       string
	namespace      string
	header         http.Header
	connectTimeout time.Duration
	dialer         *websocket.Dialer
	logger         *log.Logger

	signals chan Signal
	done    chan struct{}
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	mu     sync.Mutex // guards the fields below
	conn   *websocket.Conn
	ready  bool
	closed bool
	cancel context.CancelFunc

	writeMu sync.Mutex
}

// NewSocketChannel validates opts and returns an unconnected channel.
func NewSocketChannel(opts SocketOpts) (*SocketChannel, error) {
	endpoint, err := socketEndpoint(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	ns := opts.Namespace
	if ns == "" {
		ns = "/create"
	}
	if !strings.HasPrefix(ns, "/") {
		ns = "/" + ns
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	return &SocketChannel{
		endpoint:       endpoint,
		namespace:      ns,
		header:         header,
		connectTimeout: timeout,
		dialer:         dialer,
		logger:         logger.With("component", "transport"),
		signals:        make(chan Signal, signalBuffer),
		done:           make(chan struct{}),
	}, nil
}

// socketEndpoint maps a backend origin to its Engine.IO WebSocket URL.
func socketEndpoint(baseURL string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", fmt.Errorf("%w: empty server url", shared.ErrInvalidConfig)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: server url: %v", shared.ErrInvalidConfig, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", shared.ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: server url has no host", shared.ErrInvalidConfig)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// Endpoint returns the WebSocket URL the channel dials.
func (c *SocketChannel) Endpoint() string { return c.endpoint }

// Signals implements [Channel].
func (c *SocketChannel) Signals() <-chan Signal { return c.signals }

// Connect implements [Channel]. Only the first call has any effect.
func (c *SocketChannel) Connect(ctx context.Context) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		c.wg.Add(1)
		go c.run(ctx)
	})
}

// SendStart implements [Channel].
func (c *SocketChannel) SendStart(cmd models.StartCreation) error {
	c.mu.Lock()
	conn, ready, closed := c.conn, c.ready, c.closed
	c.mu.Unlock()

	switch {
	case closed:
		return shared.ErrChannelClosed
	case !ready || conn == nil:
		return shared.ErrNotConnected
	}

	frame, err := encodeEvent(c.namespace, eventStartCreation, cmd)
	if err != nil {
		return err
	}
	if err := c.write(conn, frame); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrConnection, err)
	}
	c.logger.Debug("sent start_creation", "level", cmd.Level)
	return nil
}

// Disconnect implements [Channel]. It blocks until the connection goroutine has exited,
// then drops anything still buffered and closes the signal stream.
func (c *SocketChannel) Disconnect() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
		conn, ready := c.conn, c.ready
		c.mu.Unlock()

		if conn != nil {
			if ready {
				_ = c.write(conn, encodeDisconnect(c.namespace))
			}
			conn.Close()
		}

		c.wg.Wait()
	drain:
		for {
			select {
			case <-c.signals:
			default:
				break drain
			}
		}
		close(c.signals)
		c.logger.Debug("channel closed")
	})
}

func (c *SocketChannel) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *SocketChannel) emit(s Signal) {
	if c.stopped() {
		return
	}
	select {
	case c.signals <- s:
	case <-c.done:
	}
}

// run owns the connection for its whole life: the first connect plus at most one reconnect.
func (c *SocketChannel) run(ctx context.Context) {
	defer c.wg.Done()

	for attempt := 0; attempt < 2; attempt++ {
		established, err := c.serve(ctx)
		if c.stopped() {
			return
		}
		if !established {
			c.logger.Warn("connect failed", "attempt", attempt+1, "error", err)
			c.emit(connectErrorSignal(reason(err)))
			return
		}

		c.logger.Warn("connection dropped", "attempt", attempt+1, "error", err)
		c.emit(disconnectedSignal(reason(err)))
	}
	c.emit(connectErrorSignal("connection lost after reconnect"))
}

func reason(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}

// serve dials, joins the namespace and reads until the connection ends.
// established reports whether the namespace join succeeded.
func (c *SocketChannel) serve(ctx context.Context) (established bool, err error) {
	dctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	conn, resp, err := c.dialer.DialContext(dctx, c.endpoint, c.header)
	cancel()
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("%w: dial %s: %v (status %d)", shared.ErrConnection, c.endpoint, err, resp.StatusCode)
		}
		return false, fmt.Errorf("%w: dial %s: %v", shared.ErrConnection, c.endpoint, err)
	}
	defer conn.Close()

	if !c.attach(conn) {
		return false, shared.ErrChannelClosed
	}
	defer c.detach()

	hs, err := c.handshake(conn)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()

	c.logger.Info("connected", "sid", hs.SID, "namespace", c.namespace)
	c.emit(connectedSignal())
	return true, c.readLoop(conn, hs)
}

func (c *SocketChannel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	c.ready = false
	return true
}

func (c *SocketChannel) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
	c.ready = false
}

// handshake reads the Engine.IO open packet and joins the namespace.
func (c *SocketChannel) handshake(conn *websocket.Conn) (handshake, error) {
	var hs handshake
	conn.SetReadDeadline(time.Now().Add(c.connectTimeout))

	pkt, err := c.readPacket(conn)
	if err != nil {
		return hs, fmt.Errorf("%w: %v", shared.ErrConnection, err)
	}
	if pkt.kind != engineOpen {
		return hs, fmt.Errorf("%w: expected open packet, got %q", shared.ErrConnection, pkt.kind)
	}
	if hs, err = decodeHandshake(pkt.data); err != nil {
		return hs, fmt.Errorf("%w: %v", shared.ErrConnection, err)
	}

	if err := c.write(conn, encodeConnect(c.namespace)); err != nil {
		return hs, fmt.Errorf("%w: %v", shared.ErrConnection, err)
	}

	for {
		pkt, err := c.readPacket(conn)
		if err != nil {
			return hs, fmt.Errorf("%w: %v", shared.ErrConnection, err)
		}

		switch pkt.kind {
		case enginePing:
			if err := c.write(conn, encodePong()); err != nil {
				return hs, fmt.Errorf("%w: %v", shared.ErrConnection, err)
			}
		case engineClose:
			return hs, fmt.Errorf("%w: closed during handshake", shared.ErrConnection)
		case engineMessage:
			sp, err := decodeSocketPacket(pkt.data)
			if err != nil || sp.namespace != c.namespace {
				continue
			}
			switch sp.kind {
			case socketConnect:
				return hs, nil
			case socketConnectError:
				return hs, fmt.Errorf("%w: %s", shared.ErrConnection, connectErrorMessage(sp.data))
			}
		}
	}
}

// readLoop dispatches inbound packets until the connection fails or the server leaves.
func (c *SocketChannel) readLoop(conn *websocket.Conn, hs handshake) error {
	window := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	if window <= 0 {
		window = defaultPingWindow
	}

	for {
		conn.SetReadDeadline(time.Now().Add(window))
		pkt, err := c.readPacket(conn)
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("server closed the connection: %s", closeErr.Text)
			}
			return err
		}

		switch pkt.kind {
		case enginePing:
			if err := c.write(conn, encodePong()); err != nil {
				return err
			}
		case engineClose:
			return errors.New("server closed the connection")
		case engineMessage:
			if err := c.handleMessage(pkt.data); err != nil {
				return err
			}
		}
	}
}

func (c *SocketChannel) handleMessage(data string) error {
	sp, err := decodeSocketPacket(data)
	if err != nil {
		c.logger.Warn("dropping malformed packet", "error", err)
		return nil
	}
	if sp.namespace != c.namespace {
		return nil
	}

	switch sp.kind {
	case socketDisconnect:
		return errors.New("server left the namespace")
	case socketConnectError:
		return fmt.Errorf("%w: %s", shared.ErrConnection, connectErrorMessage(sp.data))
	case socketEvent:
	default:
		return nil
	}

	name, args, err := decodeEvent(sp.data)
	if err != nil {
		c.logger.Warn("dropping malformed event", "error", err)
		return nil
	}

	switch name {
	case eventSessionUpdate:
		var u models.SessionUpdate
		if err := decodeArg(args, &u); err != nil {
			c.logger.Warn("dropping malformed session_update", "error", err)
			return nil
		}
		c.logger.Debug("session update", "session_id", u.SessionID, "progress", u.Progress)
		c.emit(sessionUpdateSignal(u))
	case eventError:
		var e models.ProtocolError
		if err := decodeArg(args, &e); err != nil {
			e = models.ProtocolError{}
		}
		c.logger.Warn("protocol error", "session_id", e.SessionID, "error", e.Error)
		c.emit(protocolErrorSignal(e))
	default:
		c.logger.Debug("ignoring event", "event", name)
	}
	return nil
}

func (c *SocketChannel) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// readPacket returns the next well-formed Engine.IO packet, skipping binary frames and garbage.
func (c *SocketChannel) readPacket(conn *websocket.Conn) (enginePacket, error) {
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			return enginePacket{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		pkt, err := decodeEnginePacket(frame)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		return pkt, nil
	}
}

var _ Channel = (*SocketChannel)(nil)
