package gamification

import (
	"context"
	"fmt"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LeaderboardKey is the Redis sorted set of user id -> points
const LeaderboardKey = "leaderboard:points"

const maxLeaderboardSize = 100

// LeaderboardStore is the subset of the Redis client the leaderboard uses.
// Pass a nil interface, not a nil *cache.RedisClient, when Redis is off.
type LeaderboardStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]redis.Z, error)
	ZRevRank(ctx context.Context, key, member string) (int64, error)
}

// LeaderboardEntry is one row of the leaderboard
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Points      int    `json:"points"`
	Level       int    `json:"level"`
}

func (s *Service) updateLeaderboard(ctx context.Context, userID string, points int) {
	if s.board == nil {
		return
	}
	if err := s.board.ZAdd(ctx, LeaderboardKey, float64(points), userID); err != nil {
		logger.Log.Warn("Failed to update leaderboard", logger.WithUserID(userID), zap.Error(err))
	}
}

// Leaderboard returns the top members by points. Redis is the primary
// source; the database answers when Redis is absent, failing or empty.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardSize {
		limit = 10
	}

	if s.board != nil {
		entries, err := s.leaderboardFromRedis(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			logger.Log.Warn("Redis leaderboard unavailable, using database", zap.Error(err))
		}
	}

	users, err := s.users.TopByPoints(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, entryFor(i+1, u, u.Points))
	}
	return entries, nil
}

func (s *Service) leaderboardFromRedis(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	zs, err := s.board.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(limit-1))
	if err != nil || len(zs) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(zs))
	for _, z := range zs {
		if id, ok := z.Member.(string); ok {
			ids = append(ids, id)
		}
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		u, ok := byID[id]
		if !ok {
			// deleted account
			continue
		}
		entries = append(entries, entryFor(len(entries)+1, u, int(z.Score)))
	}
	return entries, nil
}

func entryFor(rank int, u *models.User, points int) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:        rank,
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Points:      points,
		Level:       LevelFor(points),
	}
}

// Rank is the 1-based position of user, or 0 with no points
func (s *Service) Rank(ctx context.Context, user *models.User) (int64, error) {
	if user.Points <= 0 {
		return 0, nil
	}
	if s.board != nil {
		if r, err := s.board.ZRevRank(ctx, LeaderboardKey, user.ID); err == nil {
			return r + 1, nil
		}
	}

	var ahead int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("points > ?", user.Points).Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

// SyncLeaderboard rebuilds the Redis set from the database
func (s *Service) SyncLeaderboard(ctx context.Context) (int, error) {
	if s.board == nil {
		return 0, nil
	}
	var users []models.User
	err := s.db.WithContext(ctx).Select("id", "points").Where("points > 0").Find(&users).Error
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		if err := s.board.ZAdd(ctx, LeaderboardKey, float64(u.Points), u.ID); err != nil {
			return 0, fmt.Errorf("zadd %s: %w", u.ID, err)
		}
	}
	logger.Log.Info("Leaderboard synced", zap.Int("users", len(users)))
	return len(users), nil
}
