package tlv

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdsync "sync"
	"time"
)

// ErrClosed is returned by operations on a Client whose connection has
// already been closed.
var ErrClosed = errors.New("tlv: client closed")

// Options configures a Client, following coke::TlvClientParams.
type Options struct {
	Host string
	Port int

	RetryMax        int
	SendTimeout     time.Duration
	ResponseSizeCap int64

	EnableAuth      bool
	AuthType        int32
	AuthSuccessType int32
	AuthValue       []byte
}

// Client is a single-endpoint TLV connection: TCP dial, an optional auth
// handshake, and request/response dispatch (spec.md §4.15).
type Client struct {
	opts   Options
	conn   net.Conn
	parser *Parser
	writer *Writer

	mu     stdsync.Mutex
	closed bool
}

// Dial connects to opts.Host:opts.Port and, if opts.EnableAuth, performs
// the auth handshake before returning.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	var d net.Dialer
	if opts.SendTimeout > 0 {
		d.Timeout = opts.SendTimeout
	}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", opts.Host, opts.Port))
	if err != nil {
		return nil, fmt.Errorf("tlv: dial: %w", err)
	}

	c := &Client{
		opts:   opts,
		conn:   conn,
		parser: NewParser(conn),
		writer: NewWriter(),
	}
	if opts.ResponseSizeCap > 0 {
		c.parser.SetMaxValueLen(opts.ResponseSizeCap)
	}

	if opts.EnableAuth {
		if err := c.authenticate(); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// AuthError reports an auth handshake whose response type did not match
// Options.AuthSuccessType.
type AuthError struct {
	GotType int32
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("tlv: auth failed: server returned type %d", e.GotType)
}

func (c *Client) authenticate() error {
	if err := c.writeMessage(Message{Type: c.opts.AuthType, Value: c.opts.AuthValue}); err != nil {
		return fmt.Errorf("tlv: auth: write: %w", err)
	}
	resp, err := c.parser.ReadMessage()
	if err != nil {
		return fmt.Errorf("tlv: auth: read: %w", err)
	}
	if resp.Type != c.opts.AuthSuccessType {
		return &AuthError{GotType: resp.Type}
	}
	return nil
}

func (c *Client) writeMessage(msg Message) error {
	_, err := c.conn.Write(c.writer.BuildMessage(msg))
	return err
}

// Request sends one message and returns the server's reply, retrying up
// to opts.RetryMax times on connection-level write/read failure.
func (c *Client) Request(ctx context.Context, msg Message) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Message{}, ErrClosed
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		if err := c.writeMessage(msg); err != nil {
			lastErr = err
			continue
		}
		reply, err := c.parser.ReadMessage()
		if err != nil {
			lastErr = err
			continue
		}
		return reply, nil
	}
	return Message{}, lastErr
}

// Disconnect closes the underlying connection. Closing an already-closed
// connection is translated to success (the same ENOTCONN-is-success
// convention as redis/client.Client.Disconnect).
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
