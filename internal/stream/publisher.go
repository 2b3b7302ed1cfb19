package stream

import (
	"context"
	"time"

	"github.com/contentanonymity/backend/internal/logger"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Publisher sends activities in the background so request handlers never
// wait on Stream. A nil client makes every call a no-op.
type Publisher struct {
	client FeedClient
}

func NewPublisher(client FeedClient) *Publisher {
	return &Publisher{client: client}
}

// Enabled reports whether a feed client is configured
func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Client returns the underlying feed client, nil when disabled
func (p *Publisher) Client() FeedClient {
	if p == nil {
		return nil
	}
	return p.client
}

// Publish sends the activity asynchronously, logging failures
func (p *Publisher) Publish(userID string, activity *Activity) {
	if !p.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.client.PublishActivity(ctx, userID, activity); err != nil {
			logger.Log.Warn("Failed to publish activity",
				logger.WithUserID(userID),
				zap.String("verb", activity.Verb),
				zap.Error(err))
		}
	}()
}

// PublishSync sends the activity and waits for the result
func (p *Publisher) PublishSync(ctx context.Context, userID string, activity *Activity) error {
	if !p.Enabled() {
		return nil
	}
	return p.client.PublishActivity(ctx, userID, activity)
}

// Remove deletes an activity asynchronously
func (p *Publisher) Remove(userID, foreignID string) {
	if !p.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.client.RemoveActivity(ctx, userID, foreignID); err != nil {
			logger.Log.Warn("Failed to remove activity",
				logger.WithUserID(userID),
				zap.String("foreign_id", foreignID),
				zap.Error(err))
		}
	}()
}
