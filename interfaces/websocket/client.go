package websocket

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

// NewClient creates a new WebSocket client
func NewClient(userID string, hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(
			zap.String("user_id", userID),
			zap.String("connection_id", id),
		),
	}
}

// Start registers the client and begins its read and write pumps. It
// returns false when the hub refused the client, after closing the
// connection.
func (c *Client) Start() bool {
	// The welcome message is buffered before registration so it is always
	// the first frame the client sees.
	c.sendConnectionEstablished()

	reg := registration{client: c, accepted: make(chan bool, 1)}
	select {
	case c.hub.register <- reg:
	case <-c.hub.ctx.Done():
		c.conn.Close()
		return false
	}

	var accepted bool
	select {
	case accepted = <-reg.accepted:
	case <-c.hub.ctx.Done():
	}
	if !accepted {
		c.reject()
		return false
	}

	go c.writePump()
	go c.readPump()
	return true
}

// reject closes a connection the hub would not take. No pump is running, so
// the close frame can be written directly.
func (c *Client) reject() {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "connection limit exceeded"))
	c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
		c.logger.Debug("Read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		if messageType == websocket.TextMessage {
			c.handleTextMessage(message)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// handleTextMessage answers keepalive pings. Anything else is ignored.
func (c *Client) handleTextMessage(message []byte) {
	message = bytes.TrimSpace(message)
	if string(message) == "ping" {
		c.enqueue([]byte("pong"))
		return
	}
	c.logger.Debug("Received message from client", zap.Int("bytes", len(message)))
}

func (c *Client) sendConnectionEstablished() {
	data, _ := json.Marshal(map[string]string{
		"connection_id": c.id,
		"user_id":       c.userID,
		"message":       "WebSocket connection established",
	})
	msg, _ := json.Marshal(Message{
		Type:      MessageConnectionEstablished,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	c.enqueue(msg)
}

// enqueue writes to the send buffer without blocking. The hub may already
// have closed the buffer, in which case the message is dropped.
func (c *Client) enqueue(data []byte) {
	defer func() { _ = recover() }()
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

// ID returns the connection ID.
func (c *Client) ID() string { return c.id }

// UserID returns the owning user.
func (c *Client) UserID() string { return c.userID }
