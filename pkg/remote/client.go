// Package remote is a client for the floor dashboard websocket. It lets an
// operator queue or end actions from another process and watch the floor.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-floor/pkg/protocol"
)

// HandshakeTimeout bounds the websocket handshake in Dial.
const HandshakeTimeout = 10 * time.Second

// Client manages one connection to a dashboard's /ws/status endpoint.
type Client struct {
	ws     *websocket.Conn
	wsMu   sync.Mutex
	logger *slog.Logger

	closeOnce sync.Once

	// Callbacks, set before Run.
	OnSnapshot   func(*protocol.SnapshotData)
	OnTransition func(*protocol.TransitionData)
	OnAck        func(*protocol.AckData)
	OnPong       func(*protocol.PongData)
}

// Dial connects to a dashboard websocket such as ws://host:8181/ws/status.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialer := websocket.Dialer{HandshakeTimeout: HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", url, err)
	}
	return &Client{ws: ws, logger: logger.With("component", "remote")}, nil
}

// Queue asks the controller to queue an action.
func (c *Client) Queue() error {
	return c.send(protocol.NewQueueMessage())
}

// End asks the controller to end the running action.
func (c *Client) End() error {
	return c.send(protocol.NewEndMessage())
}

// Ping sends a latency probe; the answer arrives through OnPong.
func (c *Client) Ping(id string) error {
	return c.send(protocol.NewPingMessage(id))
}

func (c *Client) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("remote: send %s: %w", msg.Type, err)
	}
	return nil
}

// Run reads messages and dispatches them to the callbacks. It returns nil
// once ctx is done, or the read error if the connection drops first.
func (c *Client) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("remote: read: %w", err)
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.logger.Warn("bad dashboard message", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg *protocol.Message) {
	var err error
	switch msg.Type {
	case protocol.TypeSnapshot:
		if c.OnSnapshot != nil {
			var d *protocol.SnapshotData
			if d, err = msg.GetSnapshotData(); err == nil {
				c.OnSnapshot(d)
			}
		}
	case protocol.TypeTransition:
		if c.OnTransition != nil {
			var d *protocol.TransitionData
			if d, err = msg.GetTransitionData(); err == nil {
				c.OnTransition(d)
			}
		}
	case protocol.TypeAck:
		if c.OnAck != nil {
			var d *protocol.AckData
			if d, err = msg.GetAckData(); err == nil {
				c.OnAck(d)
			}
		}
	case protocol.TypePong:
		if c.OnPong != nil {
			var d *protocol.PongData
			if d, err = msg.GetPongData(); err == nil {
				c.OnPong(d)
			}
		}
	default:
		c.logger.Debug("ignoring message", "type", msg.Type)
	}
	if err != nil {
		c.logger.Warn("decode message", "type", msg.Type, "error", err)
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close()
	})
	return err
}
