package gateway

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Client is one authenticated websocket connection. An account may hold any
// number of them at once.
type Client struct {
	ID      string
	Account models.Account

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(account models.Account, conn *websocket.Conn) *Client {
	return &Client{
		ID:      uuid.NewString(),
		Account: account,
		conn:    conn,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

// Kill tears the connection down; the read loop unblocks via the closed conn
// and runs the usual disconnect path. Safe to call more than once.
func (c *Client) Kill() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// push enqueues one marshaled frame. Frames go out in enqueue order. A
// consumer too slow to drain its buffer is killed instead of silently
// skipping frames, so the per-connection ordering never develops gaps.
func (c *Client) push(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.Kill()
	}
}

func (c *Client) Push(pkt proto.Packet) {
	c.push(pkt.Marshal())
}

// Listen runs the read loop until the peer goes away, feeding every frame to
// the handler. The caller owns the disconnect cleanup after it returns.
func (c *Client) Listen(handler func(raw []byte)) {
	defer c.Kill()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		handler(raw)
	}
}

// WritePump owns every write on the connection; run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Kill()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
