package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/contentanonymity/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024

	// Send buffer size
	sendBufferSize = 256

	// A client may follow this many topics at once
	maxSubscriptions = 50
)

// Client represents a single WebSocket connection. Guests have an empty
// UserID and only receive topic and broadcast messages.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	// Buffered channel of outbound messages
	send chan []byte

	ConnectedAt time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	subsMu        sync.RWMutex
	subscriptions map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a new Client. Every client follows the forum topic.
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	config := hub.GetRateLimitConfig()

	return &Client{
		hub:           hub,
		conn:          conn,
		UserID:        userID,
		Username:      username,
		send:          make(chan []byte, sendBufferSize),
		ConnectedAt:   time.Now(),
		rateLimiter:   NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		subscriptions: map[string]struct{}{TopicForum: {}},
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Subscribe adds a topic; it fails once the client follows too many
func (c *Client) Subscribe(topic string) error {
	if !validTopic(topic) {
		return fmt.Errorf("unknown topic %q", topic)
	}
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if _, ok := c.subscriptions[topic]; ok {
		return nil
	}
	if len(c.subscriptions) >= maxSubscriptions {
		return fmt.Errorf("too many subscriptions")
	}
	c.subscriptions[topic] = struct{}{}
	return nil
}

// Unsubscribe removes a topic
func (c *Client) Unsubscribe(topic string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	delete(c.subscriptions, topic)
}

// IsSubscribed reports whether the client follows topic
func (c *Client) IsSubscribed(topic string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

func validTopic(topic string) bool {
	if topic == TopicForum {
		return true
	}
	id, ok := strings.CutPrefix(topic, TopicPostPrefix)
	return ok && id != "" && len(id) <= 64
}

// ReadPump reads messages from the connection until it closes
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && c.ctx.Err() == nil {
				logger.Log.Debug("WebSocket read error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}

		c.handleMessage(&message)
	}
}

// WritePump writes queued messages and keepalive pings to the connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.flush()
			return

		case message := <-c.send:
			if err := c.write(message); err != nil {
				logger.Log.Debug("WebSocket write error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("WebSocket ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, message)
}

// flush writes whatever is still buffered, such as the shutdown notice
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleMessage routes incoming messages to appropriate handlers
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing, "heartbeat":
		c.handlePing(message)
		return

	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		var p SubscribePayload
		if err := message.ParsePayload(&p); err != nil || p.Topic == "" {
			c.SendError("invalid_payload", "topic is required")
			return
		}
		if message.Type == MessageTypeUnsubscribe {
			c.Unsubscribe(p.Topic)
		} else if err := c.Subscribe(p.Topic); err != nil {
			c.SendError("subscribe_failed", err.Error())
			return
		}
		_ = c.Send(NewReply(message, message.Type, p))
		return
	}

	if handler, ok := c.hub.GetHandler(message.Type); ok {
		if err := handler(c, message); err != nil {
			logger.Log.Warn("WebSocket handler error", zap.String("type", message.Type), zap.Error(err))
			c.SendError("handler_error", fmt.Sprintf("Failed to process %s", message.Type))
		}
		return
	}

	c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
}

// handlePing responds to ping messages with pong
func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	pong := NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    serverTime - ping.ClientTime,
	})

	// Best-effort pong response - connection may be closing
	_ = c.Send(pong)
}

// Send queues a message to this client
func (c *Client) Send(message *Message) error {
	if c.ctx.Err() != nil {
		return fmt.Errorf("client connection closed")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()

	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
