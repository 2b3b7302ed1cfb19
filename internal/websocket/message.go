package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem      = "system"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"

	// Forum
	MessageTypeForumPost     = "forum.post_created"
	MessageTypeForumReply    = "forum.reply_created"
	MessageTypeForumAccepted = "forum.reply_accepted"
	MessageTypeForumVote     = "forum.vote_count"

	// Gamification, sent only to the member concerned
	MessageTypePointsAwarded = "points.awarded"
	MessageTypeBadgeEarned   = "badge.earned"
	MessageTypeLevelUp       = "level.up"
)

// Topics clients may subscribe to
const (
	TopicForum = "forum"
	// TopicPostPrefix + post id follows one thread
	TopicPostPrefix = "post:"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ReplyTo:   original.ID,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// SubscribePayload names the topic of a subscribe or unsubscribe message
type SubscribePayload struct {
	Topic string `json:"topic"`
}

// SystemPayload carries connection lifecycle events
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ForumPostPayload announces a new thread
type ForumPostPayload struct {
	PostID   string   `json:"post_id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
	AuthorID string   `json:"author_id"`
	Username string   `json:"username"`
}

// ForumReplyPayload announces a reply in a thread
type ForumReplyPayload struct {
	PostID     string `json:"post_id"`
	ReplyID    string `json:"reply_id"`
	AuthorID   string `json:"author_id"`
	Username   string `json:"username"`
	Excerpt    string `json:"excerpt"`
	ReplyCount int    `json:"reply_count"`
}

// VoteCountPayload carries a new upvote total
type VoteCountPayload struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	PostID     string `json:"post_id"`
	Count      int    `json:"count"`
}

// PointsPayload reports an award to the member who earned it
type PointsPayload struct {
	Action string `json:"action"`
	Points int    `json:"points"`
	Total  int    `json:"total"`
	Level  int    `json:"level"`
}

// BadgePayload reports a newly earned badge
type BadgePayload struct {
	Badge       string `json:"badge"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LevelPayload reports a level change
type LevelPayload struct {
	Level    int `json:"level"`
	Previous int `json:"previous"`
}
