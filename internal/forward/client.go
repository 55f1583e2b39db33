// Package forward tails a note store and ships it to a collector over
// websocket, resuming from what the collector already holds.
package forward

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"notegen/internal/config"
)

const bufSize = 16000

// Config controls a Client.
//
// Recognised flags:
//
//	restartwhenshrunk  resend the whole store when the collector holds more
//	                   than the local file
type Config struct {
	Store        string        `yaml:"store"`
	Server       string        `yaml:"server"`
	Session      string        `yaml:"session"` // empty generates one per run
	Command      string        `yaml:"command"` // producer to run in the foreground
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Flags        config.Flags  `yaml:"flags"`
}

// DefaultConfig ships the stock store to a collector on localhost.
func DefaultConfig() Config {
	return Config{
		Store:        "/app/data/notes.csv",
		Server:       "ws://localhost:8090/notes",
		Timeout:      5 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}
}

// Client forwards one store to one collector.
type Client struct {
	cfg     Config
	session string
	logger  zerolog.Logger
	sent    int64
}

// NewClient returns a client for cfg, generating a session id if none is set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Store == "" || cfg.Server == "" {
		return nil, errors.New("store and server must be set")
	}
	if cfg.Timeout <= 0 || cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("timeout %s and poll_interval %s must be positive", cfg.Timeout, cfg.PollInterval)
	}
	session := cfg.Session
	if session == "" {
		session = NewSessionID(time.Now())
	}
	return &Client{
		cfg:     cfg,
		session: session,
		logger:  log.With().Str("component", "forwarder").Str("session", session).Logger(),
	}, nil
}

// Session returns the session id sent to the collector.
func (c *Client) Session() string {
	return c.session
}

// Sent returns the number of bytes shipped so far.
func (c *Client) Sent() int64 {
	return c.sent
}

// Run ships the store until ctx is cancelled, reconnecting after each failed
// session. After cancellation the current session still sends everything
// already in the file before Run returns.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.Ship(ctx); err != nil {
			c.logger.Warn().Msgf("session ended: %s", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.Timeout):
		}
	}
}

// Ship runs a single session: wait for the store, connect, agree on the
// resume position and send complete lines until the file is drained after
// ctx is cancelled.
func (c *Client) Ship(ctx context.Context) error {
	f, err := c.waitForStore(ctx)
	if f == nil {
		return err
	}
	defer f.Close()

	dialCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.cfg.Server, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Server, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing connection")

	remote, err := c.handshake(dialCtx, conn)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "handshake failed")
		return err
	}
	pos, err := c.seek(f, remote)
	if err != nil {
		return err
	}
	c.logger.Info().Msgf("collector holds %d bytes, sending from position %d", remote, pos)
	return c.tail(ctx, f, conn)
}

func (c *Client) waitForStore(ctx context.Context) (*os.File, error) {
	for attempt := 1; ; attempt++ {
		f, err := os.Open(c.cfg.Store)
		if err == nil {
			c.logger.Info().Msgf("store open for reading - %s", c.cfg.Store)
			return f, nil
		}
		if attempt == 1 {
			c.logger.Info().Msgf("store %s does not yet exist - waiting", c.cfg.Store)
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// handshake sends the session id and returns the collector's current size.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) (int64, error) {
	if err := conn.Write(ctx, websocket.MessageText, []byte(c.session)); err != nil {
		return 0, fmt.Errorf("send session id: %w", err)
	}
	mtype, msg, err := conn.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read remote size: %w", err)
	}
	if mtype != websocket.MessageText {
		return 0, errors.New("remote size handshake not in text format")
	}
	size, err := strconv.ParseInt(string(msg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("remote size %q is not an integer: %w", msg, err)
	}
	return size, nil
}

// seek positions f after the bytes the collector already has.
func (c *Client) seek(f *os.File, remote int64) (int64, error) {
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek %s: %w", c.cfg.Store, err)
	}
	pos := end
	switch {
	case end > remote:
		pos = remote
	case end < remote && c.cfg.Flags.Has("restartwhenshrunk"):
		pos = 0
	}
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", c.cfg.Store, err)
	}
	return pos, nil
}

// tail sends complete lines as they appear. A trailing partial line is held
// back so the collector's size always falls on a line boundary.
func (c *Client) tail(ctx context.Context, f *os.File, conn *websocket.Conn) error {
	buf := make([]byte, bufSize)
	var pending []byte
	for {
		n, err := f.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			if i := bytes.LastIndexByte(pending, '\n'); i >= 0 {
				if err := c.send(conn, pending[:i+1]); err != nil {
					return err
				}
				pending = append(pending[:0], pending[i+1:]...)
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", c.cfg.Store, err)
		}
		if n == 0 {
			select {
			case <-ctx.Done():
				c.logger.Info().Int64("bytes", c.sent).Msg("store drained, ending session")
				return nil
			case <-time.After(c.cfg.PollInterval):
			}
		}
	}
}

func (c *Client) send(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.sent += int64(len(data))
	c.logger.Debug().Int("bytes", len(data)).Msg("sent")
	return nil
}
