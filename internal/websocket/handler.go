package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/middleware"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub            *Hub
	validator      middleware.TokenValidator
	originPatterns []string
	allowAnyOrigin bool
}

// NewHandler creates a new WebSocket handler. Connections without a token
// are accepted as guests; validator may be nil to accept guests only.
func NewHandler(hub *Hub, validator middleware.TokenValidator, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, validator: validator}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			h.allowAnyOrigin = true
			continue
		}
		h.originPatterns = append(h.originPatterns, originHost(origin))
	}
	return h
}

// originHost turns "https://example.com" into the "example.com" form the
// origin check matches against
func originHost(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Host
	}
	return origin
}

// HandleWebSocket upgrades the request. A token may be passed as ?token= or
// as a bearer header; an invalid token is rejected rather than downgraded.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticate(c)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": "invalid or expired token",
		})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: h.allowAnyOrigin,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	var userID, username string
	if user != nil {
		userID, username = user.ID, user.Username
	}

	client := NewClient(h.hub, conn, userID, username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to ContentAnonymity!",
		Data: map[string]interface{}{
			"user_id":     userID,
			"username":    username,
			"guest":       user == nil,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

func (h *Handler) authenticate(c *gin.Context) (*models.User, error) {
	token := c.Query("token")
	if auth := c.GetHeader("Authorization"); auth != "" {
		token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if token == "" {
		return nil, nil
	}
	if h.validator == nil {
		return nil, fmt.Errorf("token auth unavailable")
	}
	return h.validator.ValidateToken(c.Request.Context(), token)
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket": h.hub.GetMetrics(),
		"timestamp": time.Now().UTC(),
	})
}

// NotifyForumPost announces a new thread to everyone on the forum topic
func (h *Handler) NotifyForumPost(p ForumPostPayload) {
	h.hub.Publish(TopicForum, NewMessage(MessageTypeForumPost, p))
}

// NotifyReply goes to viewers of the thread and to the forum listing
func (h *Handler) NotifyReply(p ForumReplyPayload) {
	msg := NewMessage(MessageTypeForumReply, p)
	h.hub.Publish(TopicPostPrefix+p.PostID, msg)
	h.hub.Publish(TopicForum, msg)
}

// NotifyAccepted tells thread viewers and the reply author about an accepted answer
func (h *Handler) NotifyAccepted(p ForumReplyPayload) {
	msg := NewMessage(MessageTypeForumAccepted, p)
	h.hub.Publish(TopicPostPrefix+p.PostID, msg)
	h.hub.SendToUser(p.AuthorID, msg)
}

// NotifyVoteCount pushes a new upvote total to viewers of the thread
func (h *Handler) NotifyVoteCount(p VoteCountPayload) {
	h.hub.Publish(TopicPostPrefix+p.PostID, NewMessage(MessageTypeForumVote, p))
}

// SendPoints tells a member about an award
func (h *Handler) SendPoints(userID string, p PointsPayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypePointsAwarded, p))
}

// SendBadge tells a member about a new badge
func (h *Handler) SendBadge(userID string, p BadgePayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeBadgeEarned, p))
}

// SendLevelUp tells a member they reached a new level
func (h *Handler) SendLevelUp(userID string, p LevelPayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeLevelUp, p))
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
