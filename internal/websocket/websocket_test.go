package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.allClients)
	assert.NotNil(t, hub.outbound)
	assert.NotNil(t, hub.metrics)
	assert.Equal(t, DefaultRateLimitConfig(), hub.GetRateLimitConfig())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow(), "Request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestMessages(t *testing.T) {
	original := &Message{ID: "msg-1", Type: MessageTypePing}
	reply := NewReply(original, MessageTypePong, PongPayload{ServerTime: 5})
	assert.Equal(t, "msg-1", reply.ReplyTo)
	assert.Equal(t, MessageTypePong, reply.Type)

	errMsg := NewErrorMessage("bad", "nope")
	assert.Equal(t, MessageTypeError, errMsg.Type)
	assert.Equal(t, ErrorPayload{Code: "bad", Message: "nope"}, errMsg.Payload)

	var decoded Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"subscribe","payload":{"topic":"post:9"},"timestamp":1700000000000}`), &decoded))
	var sub SubscribePayload
	require.NoError(t, decoded.ParsePayload(&sub))
	assert.Equal(t, "post:9", sub.Topic)
	assert.Equal(t, int64(1700000000000), decoded.Timestamp.UnixMilli())
}

func TestClientSubscriptions(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "u1", "alice")

	assert.True(t, client.IsSubscribed(TopicForum))
	require.NoError(t, client.Subscribe("post:abc"))
	assert.True(t, client.IsSubscribed("post:abc"))
	assert.Error(t, client.Subscribe("admin"))
	assert.Error(t, client.Subscribe("post:"))

	client.Unsubscribe("post:abc")
	assert.False(t, client.IsSubscribed("post:abc"))

	for i := 0; len(client.subscriptions) < maxSubscriptions; i++ {
		require.NoError(t, client.Subscribe("post:"+strconv.Itoa(i)))
	}
	assert.Error(t, client.Subscribe("post:overflow"))
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func startedHub(t *testing.T) *Hub {
	hub := NewHub()
	hub.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return hub
}

func TestHubDelivery(t *testing.T) {
	hub := startedHub(t)

	alice := NewClient(hub, nil, "u1", "alice")
	guest := NewClient(hub, nil, "", "")
	hub.Register(alice)
	hub.Register(guest)
	assert.Eventually(t, func() bool { return hub.GetMetrics().ActiveConnections == 2 }, time.Second, 5*time.Millisecond)

	assert.True(t, hub.IsUserOnline("u1"))
	assert.False(t, hub.IsUserOnline(""))
	assert.Equal(t, 1, hub.GetUserConnectionCount("u1"))

	require.NoError(t, alice.Subscribe("post:p1"))

	hub.Publish("post:p1", NewMessage(MessageTypeForumVote, VoteCountPayload{PostID: "p1", Count: 3}))
	assert.Equal(t, MessageTypeForumVote, receive(t, alice).Type)
	assertNothing(t, guest)

	hub.Publish(TopicForum, NewMessage(MessageTypeForumPost, ForumPostPayload{PostID: "p2"}))
	assert.Equal(t, MessageTypeForumPost, receive(t, alice).Type)
	assert.Equal(t, MessageTypeForumPost, receive(t, guest).Type)

	hub.SendToUser("u1", NewMessage(MessageTypePointsAwarded, PointsPayload{Points: 10}))
	assert.Equal(t, MessageTypePointsAwarded, receive(t, alice).Type)
	assertNothing(t, guest)

	hub.Broadcast(NewMessage(MessageTypeSystem, SystemPayload{Event: "maintenance"}))
	assert.Equal(t, MessageTypeSystem, receive(t, alice).Type)
	assert.Equal(t, MessageTypeSystem, receive(t, guest).Type)

	hub.Unregister(alice)
	assert.Eventually(t, func() bool { return alice.ctx.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.False(t, hub.IsUserOnline("u1"))
	assert.Equal(t, int64(1), hub.GetMetrics().ActiveConnections)
}

func TestHubShutdownNotifiesClients(t *testing.T) {
	hub := NewHub()
	hub.Start()

	client := NewClient(hub, nil, "u1", "alice")
	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.GetMetrics().ActiveConnections == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	msg := receive(t, client)
	assert.Equal(t, MessageTypeSystem, msg.Type)
	assert.Error(t, client.ctx.Err())
	assert.Error(t, client.Send(NewMessage(MessageTypePing, nil)))
}

func TestHandlerNotifications(t *testing.T) {
	hub := startedHub(t)
	h := NewHandler(hub, nil, nil)

	viewer := NewClient(hub, nil, "u2", "bob")
	author := NewClient(hub, nil, "u1", "alice")
	hub.Register(viewer)
	hub.Register(author)
	assert.Eventually(t, func() bool { return hub.GetMetrics().ActiveConnections == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, viewer.Subscribe("post:p1"))

	h.NotifyReply(ForumReplyPayload{PostID: "p1", ReplyID: "r1", AuthorID: "u1"})
	// thread topic and forum topic
	assert.Equal(t, MessageTypeForumReply, receive(t, viewer).Type)
	assert.Equal(t, MessageTypeForumReply, receive(t, viewer).Type)
	assert.Equal(t, MessageTypeForumReply, receive(t, author).Type)

	h.SendBadge("u1", BadgePayload{Badge: "first_post"})
	assert.Equal(t, MessageTypeBadgeEarned, receive(t, author).Type)
	assertNothing(t, viewer)
}

type fakeValidator struct{}

func (fakeValidator) ValidateToken(_ context.Context, token string) (*models.User, error) {
	if token == "good" {
		return &models.User{Model: models.Model{ID: "u1"}, Username: "alice"}, nil
	}
	return nil, errors.New("bad token")
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	gin.SetMode(gin.TestMode)
	hub := startedHub(t)
	h := NewHandler(hub, fakeValidator{}, []string{"http://localhost:5173"})

	router := gin.New()
	router.GET("/ws", h.HandleWebSocket)
	router.GET("/ws/metrics", h.HandleMetrics)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestHandleWebSocketRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws?token=bad")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocketSession(t *testing.T) {
	srv, hub := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token=good", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var welcome Message
	require.NoError(t, wsjson.Read(ctx, conn, &welcome))
	assert.Equal(t, MessageTypeSystem, welcome.Type)
	var system SystemPayload
	require.NoError(t, welcome.ParsePayload(&system))
	assert.Equal(t, "connected", system.Event)
	assert.Equal(t, "u1", system.Data["user_id"])

	require.NoError(t, wsjson.Write(ctx, conn, map[string]interface{}{
		"type":    MessageTypeSubscribe,
		"id":      "s1",
		"payload": map[string]string{"topic": "post:p1"},
	}))
	var ack Message
	require.NoError(t, wsjson.Read(ctx, conn, &ack))
	assert.Equal(t, MessageTypeSubscribe, ack.Type)
	assert.Equal(t, "s1", ack.ReplyTo)

	assert.Eventually(t, func() bool { return hub.IsUserOnline("u1") }, time.Second, 5*time.Millisecond)
	hub.Publish("post:p1", NewMessage(MessageTypeForumVote, VoteCountPayload{PostID: "p1", Count: 7}))

	var vote Message
	require.NoError(t, wsjson.Read(ctx, conn, &vote))
	assert.Equal(t, MessageTypeForumVote, vote.Type)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"type": "teleport"}))
	var unknown Message
	require.NoError(t, wsjson.Read(ctx, conn, &unknown))
	assert.Equal(t, MessageTypeError, unknown.Type)
}

func TestOriginHost(t *testing.T) {
	assert.Equal(t, "localhost:5173", originHost("http://localhost:5173"))
	assert.Equal(t, "example.com", originHost("example.com"))
}
