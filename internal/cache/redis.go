package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RedisConfig captures the connection parameters for the lightweight Redis client.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const (
	defaultRedisTimeout = 5 * time.Second
	redisNamespace      = "studysite:"
)

// RedisClient speaks the small slice of the Redis protocol the backend needs:
// AUTH, SELECT, SET PX, GET, GETDEL, DEL, INCR, PEXPIRE and PTTL. A single
// connection guarded by a mutex is plenty for this traffic; it reconnects
// lazily after any transport error.
type RedisClient struct {
	cfg RedisConfig

	mu   sync.Mutex
	conn *respConn
}

// NewRedisClient connects eagerly so misconfiguration surfaces at startup.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	client := &RedisClient{cfg: cfg}

	client.mu.Lock()
	defer client.mu.Unlock()
	if err := client.connectLocked(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

// Close tears down the underlying connection.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.close()
	c.conn = nil
	return err
}

// Set stores a value under the key with PX expiry semantics.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.command(ctx, "SET", c.key(key), string(value), "PX", millis(ttl))
	return err
}

// Get retrieves the value associated with a key.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.command(ctx, "GET", c.key(key))
	if err != nil {
		return nil, false, err
	}
	return bulkReply(reply)
}

// TakeDelete atomically retrieves and removes a key via GETDEL. Redis runs
// commands serially, so at most one caller ever receives the value.
func (c *RedisClient) TakeDelete(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.command(ctx, "GETDEL", c.key(key))
	if err != nil {
		return nil, false, err
	}
	return bulkReply(reply)
}

// Delete removes one or more keys; missing keys are not an error.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]string, 0, len(keys)+1)
	args = append(args, "DEL")
	for _, key := range keys {
		args = append(args, c.key(key))
	}
	_, err := c.command(ctx, args...)
	return err
}

// IncrementWithTTL increments the counter under key, stamping the window TTL
// on first increment. It returns the count and the remaining time-to-live.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	counter := c.key(key)

	count, err := c.commandInt(ctx, "INCR", counter)
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if _, err := c.commandInt(ctx, "PEXPIRE", counter, millis(window)); err != nil {
			return 0, 0, err
		}
	}

	remaining, err := c.commandInt(ctx, "PTTL", counter)
	if err != nil || remaining < 0 {
		// PTTL hiccups degrade to reporting the full window.
		return count, window, nil
	}
	return count, time.Duration(remaining) * time.Millisecond, nil
}

func (c *RedisClient) key(k string) string {
	if strings.HasPrefix(k, redisNamespace) {
		return k
	}
	return redisNamespace + k
}

func (c *RedisClient) command(ctx context.Context, args ...string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	reply, err := c.conn.roundTrip(ctx, c.cfg.Timeout, args)
	if err != nil {
		var replyErr redisError
		if !errors.As(err, &replyErr) {
			// Transport failure: drop the connection and redial next call.
			_ = c.conn.close()
			c.conn = nil
		}
		return nil, err
	}
	return reply, nil
}

func (c *RedisClient) commandInt(ctx context.Context, args ...string) (int64, error) {
	reply, err := c.command(ctx, args...)
	if err != nil {
		return 0, err
	}
	switch v := reply.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("redis: unexpected integer reply %T", v)
	}
}

func (c *RedisClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	conn, err := dialRedis(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func bulkReply(reply any) ([]byte, bool, error) {
	switch v := reply.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return v, true, nil
	default:
		return nil, false, fmt.Errorf("redis: unexpected bulk reply %T", v)
	}
}

func millis(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// redisError is a server-side -ERR reply, as opposed to a transport failure.
type redisError string

func (e redisError) Error() string { return string(e) }

// respConn owns one Redis connection and its protocol framing.
type respConn struct {
	nc net.Conn
	br *bufio.Reader
}

func dialRedis(ctx context.Context, cfg RedisConfig) (*respConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var (
		nc  net.Conn
		err error
	)
	if cfg.TLS {
		d := &tls.Dialer{NetDialer: &net.Dialer{}}
		nc, err = d.DialContext(dialCtx, "tcp", cfg.Address)
	} else {
		d := &net.Dialer{}
		nc, err = d.DialContext(dialCtx, "tcp", cfg.Address)
	}
	if err != nil {
		return nil, err
	}

	conn := &respConn{nc: nc, br: bufio.NewReader(nc)}
	if err := conn.handshake(dialCtx, cfg); err != nil {
		_ = conn.close()
		return nil, err
	}
	return conn, nil
}

func (c *respConn) handshake(ctx context.Context, cfg RedisConfig) error {
	if cfg.Password != "" || cfg.Username != "" {
		args := []string{"AUTH"}
		if cfg.Username != "" {
			args = append(args, cfg.Username, cfg.Password)
		} else {
			args = append(args, cfg.Password)
		}
		if err := c.expectOK(ctx, cfg.Timeout, args); err != nil {
			return fmt.Errorf("redis: AUTH failed: %w", err)
		}
	}

	if cfg.DB > 0 {
		if err := c.expectOK(ctx, cfg.Timeout, []string{"SELECT", strconv.Itoa(cfg.DB)}); err != nil {
			return fmt.Errorf("redis: SELECT failed: %w", err)
		}
	}
	return nil
}

func (c *respConn) expectOK(ctx context.Context, timeout time.Duration, args []string) error {
	reply, err := c.roundTrip(ctx, timeout, args)
	if err != nil {
		return err
	}
	if s, ok := reply.(string); !ok || !strings.EqualFold(s, "OK") {
		return fmt.Errorf("unexpected reply %v", reply)
	}
	return nil
}

func (c *respConn) roundTrip(ctx context.Context, timeout time.Duration, args []string) (any, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	if err := c.nc.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := c.writeCommand(args); err != nil {
		return nil, err
	}
	return c.readReply()
}

func (c *respConn) close() error {
	return c.nc.Close()
}

func (c *respConn) writeCommand(args []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, arg := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(arg), arg)
	}
	_, err := io.WriteString(c.nc, b.String())
	return err
}

func (c *respConn) readReply() (any, error) {
	kind, err := c.br.ReadByte()
	if err != nil {
		return nil, err
	}

	switch kind {
	case '+':
		return c.readLine()
	case '-':
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		return nil, redisError(line)
	case ':':
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(line, 10, 64)
	case '$':
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, nil // null bulk string
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return nil, err
		}
		if buf[size] != '\r' || buf[size+1] != '\n' {
			return nil, errors.New("redis: bulk reply missing CRLF")
		}
		return buf[:size], nil
	case '*':
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, nil
		}
		items := make([]any, n)
		for i := range items {
			if items[i], err = c.readReply(); err != nil {
				return nil, err
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("redis: unexpected reply prefix %q", kind)
	}
}

func (c *respConn) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
