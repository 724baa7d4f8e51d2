package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	stdsync "sync"
	"time"

	"github.com/joeycumines/go-coro/redis/resp"
)

// ErrClosed is returned by operations on a client whose connection has
// already been closed.
var ErrClosed = errors.New("redis: client closed")

// NoBlock is passed as Execute's blockMs argument for ordinary (non-
// blocking) commands: no read deadline is computed or applied, matching
// RedisExecuteOption.block_ms's -1 default.
const NoBlock int32 = -1

// Client is a single-endpoint Redis connection: TCP/TLS dial, one-time
// handshake, and pipelined request/response dispatch (spec.md §4.12).
type Client struct {
	opts   Options
	conn   net.Conn
	parser *resp.Parser
	writer *resp.Writer
	connID int64

	mu     stdsync.Mutex
	closed bool
}

// Dial connects to opts.Host:opts.Port, optionally wraps the connection in
// TLS, and runs the handshake state machine before returning.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	var d net.Dialer
	if opts.SendTimeout > 0 {
		d.Timeout = opts.SendTimeout
	}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", opts.Host, opts.Port))
	if err != nil {
		return nil, fmt.Errorf("redis: dial: %w", err)
	}
	if opts.TLSConfig != nil {
		tlsConn := tls.Client(conn, opts.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("redis: tls handshake: %w", err)
		}
		conn = tlsConn
	}

	var connID int64
	if opts.Exclusive {
		connID = nextConnID()
	}

	c := &Client{
		opts:   opts,
		conn:   conn,
		parser: resp.NewParser(conn),
		writer: resp.NewWriter(),
		connID: connID,
	}
	if opts.ResponseSizeCap > 0 {
		c.parser.SetMaxBulkLen(opts.ResponseSizeCap)
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// ConnID returns this connection's conn-id: 0 for a shared connection,
// nonzero for an exclusive one (spec.md §4.12).
func (c *Client) ConnID() int64 { return c.connID }

func (c *Client) handshake() error {
	stages := c.opts.handshakeStages()
	if len(stages) == 0 {
		return nil
	}
	if c.opts.PipeHandshake {
		return c.handshakePipelined(stages)
	}
	return c.handshakeSequential(stages)
}

func (c *Client) handshakeSequential(stages []stage) error {
	for _, s := range stages {
		if err := c.writeCommand(s.args); err != nil {
			return fmt.Errorf("redis: handshake stage %s: write: %w", s.name, err)
		}
		v, err := c.parser.ReadValue()
		if err != nil {
			return fmt.Errorf("redis: handshake stage %s: read: %w", s.name, err)
		}
		if v.IsError() {
			return &HandshakeError{Stage: s.name, Message: string(v.Str)}
		}
	}
	return nil
}

func (c *Client) handshakePipelined(stages []stage) error {
	for _, s := range stages {
		if err := c.writeCommand(s.args); err != nil {
			return fmt.Errorf("redis: handshake pipeline: write: %w", err)
		}
	}
	for _, s := range stages {
		v, err := c.parser.ReadValue()
		if err != nil {
			return fmt.Errorf("redis: handshake pipeline: read: %w", err)
		}
		if v.IsError() {
			return &HandshakeError{Stage: s.name, Message: string(v.Str)}
		}
	}
	return nil
}

func (c *Client) writeCommand(args [][]byte) error {
	bufs := c.writer.BuildCommand(args)
	_, err := bufs.WriteTo(c.conn)
	return err
}

// Execute sends a single command and returns its reply, retrying up to
// opts.RetryMax times on connection-level write/read failure (spec.md
// §4.12). blockMs is NoBlock for ordinary commands, or the command's
// blocking timeout in milliseconds (e.g. BLPOP's timeout argument); when
// not NoBlock, opts.WatchTimeout(blockMs) bounds the wait for the reply
// via a read deadline, so a blocking command whose reply never arrives
// fails instead of hanging the connection forever.
func (c *Client) Execute(ctx context.Context, blockMs int32, args ...[]byte) (resp.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return resp.Value{}, ErrClosed
	}

	var deadline time.Time
	if blockMs != NoBlock {
		deadline = time.Now().Add(c.opts.WatchTimeout(int64(blockMs)))
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return resp.Value{}, err
		}
		if err := c.writeCommand(args); err != nil {
			lastErr = err
			continue
		}
		if !deadline.IsZero() {
			if err := c.conn.SetReadDeadline(deadline); err != nil {
				lastErr = err
				continue
			}
		}
		v, err := c.parser.ReadValue()
		if !deadline.IsZero() {
			c.conn.SetReadDeadline(time.Time{})
		}
		if err != nil {
			lastErr = err
			continue
		}
		return v, nil
	}
	return resp.Value{}, lastErr
}

// Pipeline sends N commands as one batch and gates completion on N
// top-level reply values (spec.md §4.12).
func (c *Client) Pipeline(ctx context.Context, cmds [][][]byte) ([]resp.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	for _, cmd := range cmds {
		if err := c.writeCommand(cmd); err != nil {
			return nil, fmt.Errorf("redis: pipeline write: %w", err)
		}
	}
	out := make([]resp.Value, 0, len(cmds))
	for range cmds {
		v, err := c.parser.ReadValue()
		if err != nil {
			return out, fmt.Errorf("redis: pipeline read: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Disconnect closes the underlying connection. A close-connection request
// never retries (spec.md §4.12); closing an already-closed connection is
// translated to success, mirroring the ENOTCONN-is-success convention for
// exclusive connection clients.
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
