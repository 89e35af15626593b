// Package client connects to a netpulse server and streams its telemetry.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
	"nhooyr.io/websocket"

	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/output"
)

// DefaultBuffer is the number of decoded messages buffered for the reader.
const DefaultBuffer = 64

// Client is one telemetry connection.
type Client struct {
	conn   *websocket.Conn
	logger *log.Entry

	messages chan output.Message
	done     chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// Options configures Dial.
type Options struct {
	Buffer int
	Logger *log.Entry
}

// Dial connects to url and starts reading messages.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	c := &Client{
		conn:     conn,
		logger:   opts.Logger,
		messages: make(chan output.Message, opts.Buffer),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Messages delivers decoded messages. It is closed when the connection ends.
func (c *Client) Messages() <-chan output.Message {
	return c.messages
}

// Err returns why the connection ended, or nil for a normal close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.messages)
	ctx := context.Background()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.finish(err)
			return
		}

		msg, err := output.DecodeMessage(data)
		if err != nil {
			c.logger.WithError(err).Debug("skipping message")
			continue
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) finish(err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	select {
	case <-c.done:
		err = nil
	default:
	}

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Send writes one command.
func (c *Client) Send(ctx context.Context, cmd output.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd.Type, err)
	}
	return nil
}

// Close closes the connection. It is idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close(websocket.StatusNormalClosure, "client closed")
	})
	return err
}
