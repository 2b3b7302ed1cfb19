package stream

import "context"

// FeedClient publishes and reads the community activity feed.
// This enables mocking for unit tests without requiring a real getstream.io connection.
type FeedClient interface {
	PublishActivity(ctx context.Context, userID string, activity *Activity) error
	RemoveActivity(ctx context.Context, userID, foreignID string) error
	GetCommunityFeed(ctx context.Context, limit, offset int) ([]*Activity, error)
	GetUserFeed(ctx context.Context, userID string, limit, offset int) ([]*Activity, error)
	CreateToken(userID string) (string, error)
}

// Ensure Client implements FeedClient
var _ FeedClient = (*Client)(nil)
