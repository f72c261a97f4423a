// Package doctalk provides a Go client for the doc-chat service. It opens
// one WebSocket connection to the ingestion backend, performs the credential
// handshake, and multiplexes JSON event envelopes and raw audio frames over
// it. Session layers the conversation state machine on top.
package doctalk

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/doctalk/doctalk-go-sdk/wire"
)

// ConnState is the lifecycle state of the connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client owns the single socket connection for one chat channel.
type Client struct {
	cfg       Config
	conn      net.Conn
	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
	sendCh    chan wire.Frame
	router    *Router
}

// Connect dials the configured chat channel and performs the handshake:
// if a credential token is available it is sent as the first frame after
// open, before any user-initiated traffic. No acknowledgement is awaited.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		done:   make(chan struct{}),
		sendCh: make(chan wire.Frame, 64),
		router: NewRouter(),
	}
	c.state.Store(int32(StateConnecting))

	conn, _, _, err := ws.Dial(ctx, cfg.target())
	if err != nil {
		c.state.Store(int32(StateClosed))
		return nil, fmt.Errorf("dial: %w", err)
	}
	c.conn = conn
	c.state.Store(int32(StateOpen))

	if token := cfg.resolveToken(); token != "" {
		frame, _ := wire.Encode(wire.EventAuth, wire.AuthPayload{Token: token})
		if err := wsutil.WriteClientText(conn, frame.Payload); err != nil {
			conn.Close()
			c.state.Store(int32(StateClosed))
			return nil, fmt.Errorf("send auth: %w", err)
		}
	}

	slog.Info("connected", "endpoint", cfg.Endpoint, "channel", cfg.Channel)

	go c.readLoop()
	go c.writeLoop()

	return c, nil
}

// Router returns the client's event router.
func (c *Client) Router() *Router {
	return c.router
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// Send encodes one outbound event and queues it for writing. Sends attempted
// while the connection is not open are dropped, not queued; that is the
// wire contract, so a drop is not an error to the caller.
func (c *Client) Send(event string, data any) error {
	if c.State() != StateOpen {
		slog.Debug("send dropped, connection not open", "event", event, "state", c.State())
		return nil
	}

	frame, err := wire.Encode(event, data)
	if err != nil {
		return err
	}

	select {
	case c.sendCh <- frame:
	case <-c.done:
	}
	return nil
}

// Close tears down the connection. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// readLoop is the single consumer of inbound frames; dispatch runs inline
// here, so handler execution follows transport delivery order exactly.
func (c *Client) readLoop() {
	for {
		data, op, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			select {
			case <-c.done:
			default:
				slog.Warn("read error, disconnecting", "error", err)
				c.Close()
			}
			return
		}
		c.router.Dispatch(op == ws.OpBinary, data)
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case f := <-c.sendCh:
			var err error
			if f.Binary {
				err = wsutil.WriteClientBinary(c.conn, f.Payload)
			} else {
				err = wsutil.WriteClientText(c.conn, f.Payload)
			}
			if err != nil {
				slog.Warn("write error", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
