package rtc

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/banterhq/banter/pkg/proto"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// SignalClient keeps one gateway connection alive: it dials with the
// account token, pumps outbound packets through a single writer, and hands
// every inbound packet to the registered handler on the read loop.
type SignalClient struct {
	conn     *websocket.Conn
	endpoint string
	token    string

	outgoing chan proto.Packet
	done     chan struct{}

	mu     sync.Mutex
	closed bool

	handler func(proto.Packet)
}

func NewSignalClient(endpoint, token string) *SignalClient {
	return &SignalClient{
		endpoint: endpoint,
		token:    token,
		outgoing: make(chan proto.Packet, 64),
		done:     make(chan struct{}),
	}
}

// OnPacket registers the inbound handler. It must be set before Connect;
// the read loop invokes it synchronously, so ordering across packets is
// exactly the server's emit order.
func (c *SignalClient) OnPacket(handler func(proto.Packet)) {
	c.handler = handler
}

// Connect dials the gateway and starts both pumps. The token rides in the
// query string because browser websocket clients cannot set headers, and
// the server accepts either form.
func (c *SignalClient) Connect() error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	query := u.Query()
	query.Set("tk", c.token)
	u.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("unable to reach gateway: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *SignalClient) readPump() {
	defer c.conn.Close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var pkt proto.Packet
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &pkt); err != nil {
			log.Warn().Err(err).Msg("Unable to decode a gateway packet...")
			continue
		}
		if c.handler != nil {
			c.handler(pkt)
		}
	}
}

func (c *SignalClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case pkt := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(pkt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues one packet for the write pump. Packets sent after Close are
// dropped silently.
func (c *SignalClient) Send(pkt proto.Packet) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.outgoing <- pkt:
	case <-c.done:
	}
}

// Close shuts the connection down exactly once.
func (c *SignalClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
