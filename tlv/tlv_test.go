package tlv

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterParserRoundTrip(t *testing.T) {
	w := NewWriter()
	msg := Message{Type: 7, Value: []byte("hello world")}
	buf := w.BuildMessage(msg)

	p := NewParser(bytes.NewReader(buf))
	got, err := p.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, msg.Value, got.Value)
}

func TestParserEmptyValue(t *testing.T) {
	w := NewWriter()
	buf := w.BuildMessage(Message{Type: 1, Value: nil})
	p := NewParser(bytes.NewReader(buf))
	got, err := p.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Type)
	assert.Empty(t, got.Value)
}

func TestParserRejectsOversizedValue(t *testing.T) {
	w := NewWriter()
	buf := w.BuildMessage(Message{Type: 1, Value: make([]byte, 1024)})
	p := NewParser(bytes.NewReader(buf))
	p.SetMaxValueLen(100)
	_, err := p.ReadMessage()
	assert.Error(t, err)
}

func TestParserReadsMultipleFramesSequentially(t *testing.T) {
	w := NewWriter()
	var buf bytes.Buffer
	buf.Write(w.BuildMessage(Message{Type: 1, Value: []byte("a")}))
	buf.Write(w.BuildMessage(Message{Type: 2, Value: []byte("bb")}))
	buf.Write(w.BuildMessage(Message{Type: 3, Value: []byte("ccc")}))

	p := NewParser(&buf)
	for i, want := range []Message{
		{Type: 1, Value: []byte("a")},
		{Type: 2, Value: []byte("bb")},
		{Type: 3, Value: []byte("ccc")},
	} {
		got, err := p.ReadMessage()
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Value, got.Value)
	}
}

func startTlvServer(t *testing.T, handler func(conn net.Conn)) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestClientAuthenticatesThenRequests(t *testing.T) {
	host, port := startTlvServer(t, func(conn net.Conn) {
		p := NewParser(conn)
		w := NewWriter()

		authMsg, err := p.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, int32(2), authMsg.Type)
		require.Equal(t, "secret", string(authMsg.Value))
		conn.Write(w.BuildMessage(Message{Type: 200}))

		req, err := p.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, int32(5), req.Type)
		conn.Write(w.BuildMessage(Message{Type: 5, Value: []byte("reply")}))
	})

	c, err := Dial(context.Background(), Options{
		Host: host, Port: port,
		EnableAuth: true, AuthType: 2, AuthSuccessType: 200, AuthValue: []byte("secret"),
	})
	require.NoError(t, err)
	defer c.Disconnect()

	reply, err := c.Request(context.Background(), Message{Type: 5, Value: []byte("req")})
	require.NoError(t, err)
	assert.Equal(t, "reply", string(reply.Value))
}

func TestClientAuthFailureSurfaces(t *testing.T) {
	host, port := startTlvServer(t, func(conn net.Conn) {
		p := NewParser(conn)
		w := NewWriter()
		_, err := p.ReadMessage()
		require.NoError(t, err)
		conn.Write(w.BuildMessage(Message{Type: 999}))
	})

	_, err := Dial(context.Background(), Options{
		Host: host, Port: port,
		EnableAuth: true, AuthType: 2, AuthSuccessType: 200, AuthValue: []byte("wrong"),
	})
	require.Error(t, err)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(999), authErr.GotType)
}

func TestClientDisconnectIdempotent(t *testing.T) {
	host, port := startTlvServer(t, func(conn net.Conn) {
		NewParser(conn)
	})
	c, err := Dial(context.Background(), Options{Host: host, Port: port})
	require.NoError(t, err)
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())
}
