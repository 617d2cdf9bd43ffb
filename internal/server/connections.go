package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Client is one websocket connection inside a room. The room actor queues
// encoded frames on send; writePump is the only writer on conn.
type Client struct {
	id       string
	playerID string
	conn     *websocket.Conn
	send     chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(id, playerID string, conn *websocket.Conn, queue int) *Client {
	return &Client{
		id:       id,
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, queue),
		closed:   make(chan struct{}),
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) PlayerID() string { return c.playerID }

// enqueue reports false when the client is closed or its queue is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close stops writePump. The connection itself is closed by its handler.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// writePump drains the send queue until the client closes, ctx ends or a
// write fails.
func (c *Client) writePump(ctx context.Context, writeTimeout time.Duration) error {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(ctx, frame, writeTimeout); err != nil {
				return err
			}
		case <-c.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) write(ctx context.Context, frame []byte, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, frame)
}
