package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkv/mirkv/pkg/config"
	"github.com/mirkv/mirkv/pkg/resp"
)

// startFakeServer accepts one connection and replies to every decoded
// command using reply, looping until the connection closes. It exists so
// pkg/client's wire encoding/decoding can be tested without depending on
// internal/server.
func startFakeServer(t *testing.T, reply func(args [][]byte) []byte) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 0, 4096)
		chunk := make([]byte, 4096)
		for {
			d := resp.DecodeCommand(buf)
			if d.Outcome == resp.Ready {
				buf = buf[d.Consumed:]
				if _, err := conn.Write(reply(d.Args)); err != nil {
					return
				}
				continue
			}
			n, err := conn.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if err != nil {
				return
			}
		}
	}()

	return listener.Addr().String()
}

func newTestClient(t *testing.T, addr string) *Client {
	cfg := config.NewClientConfig()
	cfg.Addr = addr
	cfg.ConnTimeout = 2
	cfg.ReadTimeout = 2
	cfg.WriteTimeout = 2
	cfg.RetryAttempts = 0
	return NewWithConfig(cfg)
}

func TestClientGetFound(t *testing.T) {
	addr := startFakeServer(t, func(args [][]byte) []byte {
		return resp.EncodeBulkString([]byte("hello"))
	})
	c := newTestClient(t, addr)
	defer c.Close()

	value, found, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", value)
}

func TestClientGetMissing(t *testing.T) {
	addr := startFakeServer(t, func(args [][]byte) []byte {
		return resp.EncodeNullBulk()
	})
	c := newTestClient(t, addr)
	defer c.Close()

	_, found, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClientSetOK(t *testing.T) {
	addr := startFakeServer(t, func(args [][]byte) []byte {
		return resp.EncodeSimpleString("OK")
	})
	c := newTestClient(t, addr)
	defer c.Close()

	err := c.Set("k", "v", time.Minute)
	require.NoError(t, err)
}

func TestClientServerErrorReplySurfaces(t *testing.T) {
	addr := startFakeServer(t, func(args [][]byte) []byte {
		return resp.EncodeError("wrong type")
	})
	c := newTestClient(t, addr)
	defer c.Close()

	_, _, err := c.Get("k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong type")
}

func TestClientIncr(t *testing.T) {
	addr := startFakeServer(t, func(args [][]byte) []byte {
		return resp.EncodeInteger(5)
	})
	c := newTestClient(t, addr)
	defer c.Close()

	n, err := c.Incr("counter")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestClientHGetAll(t *testing.T) {
	addr := startFakeServer(t, func(args [][]byte) []byte {
		return resp.EncodeBulkArray([][]byte{[]byte("f1"), []byte("v1")})
	})
	c := newTestClient(t, addr)
	defer c.Close()

	fields, err := c.HGetAll("h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f1": "v1"}, fields)
}
