// Package client provides a high-level client SDK for connecting to a
// mirkv server.
//
// The client maintains a pool of connections to a single configured
// endpoint and retries a command a configurable number of times on a
// transient network error. It speaks the RESP-style wire protocol
// directly (pkg/resp) rather than wrapping another library.
//
// Basic usage:
//
//	c := client.New("localhost:6380")
//	defer c.Close()
//
//	err := c.Set("user:123", "john_doe", time.Hour)
//	value, found, err := c.Get("user:123")
//
//	c.HSet("user:123:profile", "name", "John Doe")
//	profile, err := c.HGetAll("user:123:profile")
//
//	length, err := c.RPush("tasks", "task1", "task2")
package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/mirkv/mirkv/pkg/config"
	"github.com/mirkv/mirkv/pkg/resp"
)

// defaultPoolSize bounds the number of idle connections a Client keeps
// open to its server.
const defaultPoolSize = 10

// Client is a high-level, thread-safe interface to a single mirkv server.
// It maintains a pool of connections for reuse and applies the configured
// retry policy to transient network errors.
type Client struct {
	config *config.ClientConfig
	pool   *ConnectionPool
}

// ConnectionPool manages reusable connections to one server address.
// Connections are dialed on demand whenever no idle one is available and
// returned to the pool after use; at most maxConns idle connections are
// kept, and a full pool simply closes the returned connection instead of
// blocking.
type ConnectionPool struct {
	connections chan net.Conn
	address     string
	connTimeout time.Duration
	maxConns    int
}

func newConnectionPool(address string, maxConns int, connTimeout time.Duration) *ConnectionPool {
	return &ConnectionPool{
		address:     address,
		connections: make(chan net.Conn, maxConns),
		maxConns:    maxConns,
		connTimeout: connTimeout,
	}
}

// Get returns an idle pooled connection, or dials a new one if the pool is
// empty.
func (p *ConnectionPool) Get() (net.Conn, error) {
	select {
	case conn := <-p.connections:
		return conn, nil
	default:
		return net.DialTimeout("tcp", p.address, p.connTimeout)
	}
}

// Put returns conn to the pool, closing it instead if the pool is full.
func (p *ConnectionPool) Put(conn net.Conn) {
	select {
	case p.connections <- conn:
	default:
		_ = conn.Close()
	}
}

// Close closes every idle pooled connection.
func (p *ConnectionPool) Close() error {
	close(p.connections)
	var firstErr error
	for conn := range p.connections {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New creates a Client connected to addr using default configuration.
func New(addr string) *Client {
	cfg := config.NewClientConfig()
	cfg.Addr = addr
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Client using the provided configuration. It
// panics if cfg fails validation, matching the fail-fast behavior of a
// misconfigured client that would otherwise fail on its first command.
func NewWithConfig(cfg *config.ClientConfig) *Client {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid client config: %v", err))
	}
	return &Client{
		config: cfg,
		pool:   newConnectionPool(cfg.Addr, defaultPoolSize, time.Duration(cfg.ConnTimeout)*time.Second),
	}
}

// Close releases the client's idle pooled connections.
func (c *Client) Close() error {
	return c.pool.Close()
}

// execute sends args as one command and returns its decoded reply,
// retrying up to config.RetryAttempts times on a network error.
func (c *Client) execute(args ...string) (interface{}, error) {
	byteArgs := make([][]byte, len(args))
	for i, a := range args {
		byteArgs[i] = []byte(a)
	}
	payload := resp.EncodeCommand(byteArgs)

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		conn, err := c.pool.Get()
		if err != nil {
			lastErr = err
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(time.Duration(c.config.WriteTimeout) * time.Second)); err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}
		if _, err := conn.Write(payload); err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}

		if err := conn.SetReadDeadline(time.Now().Add(time.Duration(c.config.ReadTimeout) * time.Second)); err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}
		reply, err := readReply(bufio.NewReader(conn))
		if err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}

		if replyErr, ok := reply.(error); ok {
			c.pool.Put(conn)
			return nil, replyErr
		}
		c.pool.Put(conn)
		return reply, nil
	}

	return nil, fmt.Errorf("command failed after %d attempts: %w", c.config.RetryAttempts+1, lastErr)
}

func asBulk(v interface{}) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

func asInt(v interface{}) int64 {
	n, _ := v.(int64)
	return n
}

func asArray(v interface{}) []interface{} {
	a, _ := v.([]interface{})
	return a
}

// Get retrieves the string value of key. found is false if the key is
// absent.
func (c *Client) Get(key string) (value string, found bool, err error) {
	reply, err := c.execute("GET", key)
	if err != nil {
		return "", false, err
	}
	b, ok := asBulk(reply)
	if !ok {
		return "", false, nil
	}
	return string(b), true, nil
}

// Set stores value under key, expiring it after ttl if ttl > 0.
func (c *Client) Set(key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := c.execute("SET", key, value)
		return err
	}
	_, err := c.execute("SET", key, value, "PX", fmt.Sprintf("%d", ttl.Milliseconds()))
	return err
}

// Del deletes key, reporting whether it existed.
func (c *Client) Del(key string) (bool, error) {
	reply, err := c.execute("DEL", key)
	if err != nil {
		return false, err
	}
	return asInt(reply) == 1, nil
}

// TTL returns -2 if key is absent, -1 if it has no expiration, or the
// number of seconds remaining otherwise.
func (c *Client) TTL(key string) (int64, error) {
	reply, err := c.execute("TTL", key)
	if err != nil {
		return 0, err
	}
	return asInt(reply), nil
}

// Incr increments key's integer value by 1, defaulting to 0 if absent.
func (c *Client) Incr(key string) (int64, error) {
	reply, err := c.execute("INCR", key)
	if err != nil {
		return 0, err
	}
	return asInt(reply), nil
}

// HSet sets field to value within key's hash.
func (c *Client) HSet(key, field, value string) error {
	_, err := c.execute("HSET", key, field, value)
	return err
}

// HGet retrieves the value of field within key's hash.
func (c *Client) HGet(key, field string) (value string, found bool, err error) {
	reply, err := c.execute("HGET", key, field)
	if err != nil {
		return "", false, err
	}
	b, ok := asBulk(reply)
	if !ok {
		return "", false, nil
	}
	return string(b), true, nil
}

// HGetAll retrieves key's hash as a field->value map.
func (c *Client) HGetAll(key string) (map[string]string, error) {
	reply, err := c.execute("HGETALL", key)
	if err != nil {
		return nil, err
	}
	items := asArray(reply)
	out := make(map[string]string, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		f, _ := asBulk(items[i])
		v, _ := asBulk(items[i+1])
		out[string(f)] = string(v)
	}
	return out, nil
}

// LPush prepends values to key's list, returning the new length.
func (c *Client) LPush(key string, values ...string) (int64, error) {
	reply, err := c.execute(append([]string{"LPUSH", key}, values...)...)
	if err != nil {
		return 0, err
	}
	return asInt(reply), nil
}

// RPush appends values to key's list, returning the new length.
func (c *Client) RPush(key string, values ...string) (int64, error) {
	reply, err := c.execute(append([]string{"RPUSH", key}, values...)...)
	if err != nil {
		return 0, err
	}
	return asInt(reply), nil
}

// SAdd adds members to key's set, returning the number newly added.
func (c *Client) SAdd(key string, members ...string) (int64, error) {
	reply, err := c.execute(append([]string{"SADD", key}, members...)...)
	if err != nil {
		return 0, err
	}
	return asInt(reply), nil
}

// SMembers returns all members of key's set.
func (c *Client) SMembers(key string) ([]string, error) {
	reply, err := c.execute("SMEMBERS", key)
	if err != nil {
		return nil, err
	}
	items := asArray(reply)
	out := make([]string, len(items))
	for i, it := range items {
		b, _ := asBulk(it)
		out[i] = string(b)
	}
	return out, nil
}

// Ping checks server liveness.
func (c *Client) Ping() error {
	_, err := c.execute("PING")
	return err
}
