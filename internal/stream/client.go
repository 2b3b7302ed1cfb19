package stream

import (
	"context"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-go2/v8"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Feed group names configured in Stream.io dashboard
const (
	FeedGroupUser      = "user"      // a member's own activity
	FeedGroupCommunity = "community" // everything, shown on the community page
	communityFeedID    = "global"
)

// Verbs used in activities
const (
	VerbPosted     = "posted"
	VerbReplied    = "replied"
	VerbEarned     = "earned"
	VerbCompleted  = "completed"
	VerbLeveledUp  = "leveled_up"
	VerbAnswerPick = "accepted"
)

// Activity is one entry in the community feed
type Activity struct {
	ID        string                 `json:"id,omitempty"`
	Actor     string                 `json:"actor"`
	Verb      string                 `json:"verb"`
	Object    string                 `json:"object"`
	ForeignID string                 `json:"foreign_id,omitempty"`
	Time      string                 `json:"time,omitempty"`
	Title     string                 `json:"title,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Username  string                 `json:"username,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Client wraps the Stream.io feeds client
type Client struct {
	feedsClient *stream.Client
}

// NewClient creates a new Stream.io client
func NewClient(apiKey, apiSecret string) (*Client, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("STREAM_API_KEY and STREAM_API_SECRET must be set")
	}

	feedsClient, err := stream.New(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create Stream.io Feeds client: %w", err)
	}

	return &Client{feedsClient: feedsClient}, nil
}

// FeedsClient returns the underlying feeds client for direct access if needed
func (c *Client) FeedsClient() *stream.Client {
	return c.feedsClient
}

// PublishActivity adds an activity to the member's feed and fans it out to
// the community feed
func (c *Client) PublishActivity(ctx context.Context, userID string, activity *Activity) error {
	userFeed, err := c.feedsClient.FlatFeed(FeedGroupUser, userID)
	if err != nil {
		return fmt.Errorf("failed to get user feed: %w", err)
	}
	communityFeed, err := c.feedsClient.FlatFeed(FeedGroupCommunity, communityFeedID)
	if err != nil {
		return fmt.Errorf("failed to get community feed: %w", err)
	}

	streamActivity := toStreamActivity(userID, activity)
	streamActivity.To = []string{communityFeed.ID()}

	ctx, span := telemetry.TraceExternalCall(ctx, "stream", "AddActivity", activity.ForeignID)
	resp, err := userFeed.AddActivity(ctx, streamActivity)
	telemetry.EndExternalCall(span, err)
	if err != nil {
		return fmt.Errorf("failed to create Stream.io activity: %w", err)
	}

	activity.ID = resp.ID
	if !resp.Time.IsZero() {
		activity.Time = resp.Time.Format(time.RFC3339)
	}

	logger.Log.Debug("Stream activity created",
		logger.WithUserID(userID),
		zap.String("verb", activity.Verb),
		zap.String("activity_id", activity.ID),
	)
	return nil
}

// RemoveActivity deletes an activity by its foreign id, e.g. when a forum
// post is deleted
func (c *Client) RemoveActivity(ctx context.Context, userID, foreignID string) error {
	userFeed, err := c.feedsClient.FlatFeed(FeedGroupUser, userID)
	if err != nil {
		return fmt.Errorf("failed to get user feed: %w", err)
	}
	if _, err := userFeed.RemoveActivityByForeignID(ctx, foreignID); err != nil {
		return fmt.Errorf("failed to remove activity: %w", err)
	}
	return nil
}

// GetCommunityFeed gets the most recent community activities
func (c *Client) GetCommunityFeed(ctx context.Context, limit, offset int) ([]*Activity, error) {
	feed, err := c.feedsClient.FlatFeed(FeedGroupCommunity, communityFeedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get community feed: %w", err)
	}
	return readFeed(ctx, feed, limit, offset)
}

// GetUserFeed gets one member's activities
func (c *Client) GetUserFeed(ctx context.Context, userID string, limit, offset int) ([]*Activity, error) {
	feed, err := c.feedsClient.FlatFeed(FeedGroupUser, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user feed: %w", err)
	}
	return readFeed(ctx, feed, limit, offset)
}

func readFeed(ctx context.Context, feed *stream.FlatFeed, limit, offset int) ([]*Activity, error) {
	resp, err := feed.GetActivities(ctx,
		stream.WithActivitiesLimit(limit),
		stream.WithActivitiesOffset(offset),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}

	activities := make([]*Activity, 0, len(resp.Results))
	for _, act := range resp.Results {
		activities = append(activities, convertStreamActivity(&act))
	}
	return activities, nil
}

// CreateToken issues a client-side read token for the member's feeds
func (c *Client) CreateToken(userID string) (string, error) {
	token, err := c.feedsClient.CreateUserToken(userID)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

func toStreamActivity(userID string, activity *Activity) stream.Activity {
	out := stream.Activity{
		Actor:     "user:" + userID,
		Verb:      activity.Verb,
		Object:    activity.Object,
		ForeignID: activity.ForeignID,
		Extra:     map[string]any{},
	}
	if activity.Title != "" {
		out.Extra["title"] = activity.Title
	}
	if activity.URL != "" {
		out.Extra["url"] = activity.URL
	}
	if activity.Username != "" {
		out.Extra["username"] = activity.Username
	}
	for k, v := range activity.Extra {
		out.Extra[k] = v
	}
	return out
}

// convertStreamActivity converts Stream.io Activity to our Activity type
func convertStreamActivity(act *stream.Activity) *Activity {
	activity := &Activity{
		ID:        act.ID,
		Actor:     act.Actor,
		Verb:      act.Verb,
		Object:    act.Object,
		ForeignID: act.ForeignID,
	}

	if !act.Time.IsZero() {
		activity.Time = act.Time.Format(time.RFC3339)
	}

	extra := map[string]interface{}{}
	for k, v := range act.Extra {
		switch k {
		case "title":
			activity.Title, _ = v.(string)
		case "url":
			activity.URL, _ = v.(string)
		case "username":
			activity.Username, _ = v.(string)
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		activity.Extra = extra
	}
	return activity
}
