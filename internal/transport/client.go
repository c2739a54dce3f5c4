package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"canvassync/internal/user"
)

const writeWait = 10 * time.Second

var (
	ErrQueueFull    = errors.New("send queue full")
	ErrClientClosed = errors.New("client closed")
)

// Client is one websocket connection with an asynchronous send queue.
// All socket writes go through the write pump, so callers holding canvas
// locks only ever enqueue.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(conn *websocket.Conn, queueSize int) *Client {
	return &Client{
		id:   user.NewConnID(),
		conn: conn,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Enqueue hands a frame to the write pump without blocking. A full queue
// is an error so the canvas can drop this subscriber instead of stalling
// the whole room.
func (c *Client) Enqueue(msg []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the write pump. Idempotent, safe from any goroutine.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with pings. Runs until Close is called or a write fails.
func (c *Client) WritePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
