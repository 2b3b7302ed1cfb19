package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownAction = errors.New("unknown action")

// Notifier is told about awards after they commit. Implementations must not
// block; they fan out to websockets and the activity feed.
type Notifier interface {
	PointsAwarded(user *models.User, result *AwardResult)
	BadgeEarned(user *models.User, badge Badge)
	LevelUp(user *models.User, level, previous int)
}

// AwardResult describes the outcome of one award attempt
type AwardResult struct {
	Action        Action  `json:"action"`
	Points        int     `json:"points"`
	Total         int     `json:"total"`
	Level         int     `json:"level"`
	PreviousLevel int     `json:"previous_level"`
	Awarded       bool    `json:"awarded"`
	Badges        []Badge `json:"badges"`
}

// LeveledUp reports whether the award crossed a level boundary
func (r *AwardResult) LeveledUp() bool {
	return r.Level > r.PreviousLevel
}

// Service awards points and badges
type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	board    LeaderboardStore
	notifier Notifier
	now      func() time.Time
}

// NewService creates the gamification service. board may be nil, in which
// case the leaderboard is read from the database.
func NewService(db *gorm.DB, users repository.UserRepository, board LeaderboardStore) *Service {
	return &Service{
		db:    db,
		users: users,
		board: board,
		now:   time.Now,
	}
}

// SetNotifier attaches the event fan-out
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Award gives the points for action to a user once per refID. Repeat calls
// with the same reference return Awarded=false and the current totals.
func (s *Service) Award(ctx context.Context, userID string, action Action, refID string) (*AwardResult, error) {
	return s.award(ctx, userID, action, refID, nil)
}

// award runs the ledger insert, the user update and badge evaluation in one
// transaction. mutate, when set, runs after the ledger row is inserted and
// may change user fields that badge rules read.
func (s *Service) award(ctx context.Context, userID string, action Action, refID string, mutate func(tx *gorm.DB, user *models.User) error) (*AwardResult, error) {
	points := PointsFor(action)
	if points == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	var (
		user   models.User
		result = &AwardResult{Action: action, Points: points}
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := &models.PointEvent{UserID: userID, Action: string(action), RefID: refID, Points: points}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
		if res.Error != nil {
			return fmt.Errorf("insert point event: %w", res.Error)
		}
		result.Awarded = res.RowsAffected == 1

		if result.Awarded {
			err := tx.Model(&models.User{}).Where("id = ?", userID).
				UpdateColumn("points", gorm.Expr("points + ?", points)).Error
			if err != nil {
				return fmt.Errorf("add points: %w", err)
			}
		}

		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		result.Total = user.Points
		result.PreviousLevel = user.Level
		result.Level = user.Level

		if !result.Awarded {
			return nil
		}

		if mutate != nil {
			if err := mutate(tx, &user); err != nil {
				return err
			}
		}

		if level := LevelFor(user.Points); level != user.Level {
			if err := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("level", level).Error; err != nil {
				return fmt.Errorf("update level: %w", err)
			}
			user.Level = level
			result.Level = level
		}

		badges, err := s.evaluateBadges(tx, &user)
		if err != nil {
			return err
		}
		result.Badges = badges
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Awarded {
		s.afterAward(ctx, &user, result)
	}
	return result, nil
}

func (s *Service) evaluateBadges(tx *gorm.DB, user *models.User) ([]Badge, error) {
	var rows []struct {
		Action string
		N      int64
	}
	err := tx.Model(&models.PointEvent{}).
		Select("action, count(*) as n").
		Where("user_id = ?", user.ID).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count point events: %w", err)
	}

	var keys []string
	if err := tx.Model(&models.UserBadge{}).Where("user_id = ?", user.ID).Pluck("badge_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}

	st := stats{counts: make(map[Action]int64, len(rows)), level: user.Level, streak: user.StreakDays}
	for _, r := range rows {
		st.counts[Action(r.Action)] = r.N
	}
	have := make(map[string]bool, len(keys))
	for _, k := range keys {
		have[k] = true
	}

	var awarded []Badge
	for _, b := range earnedBadges(st, have) {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserBadge{UserID: user.ID, BadgeKey: b.Key, AwardedAt: s.now().UTC()})
		if res.Error != nil {
			return nil, fmt.Errorf("award badge %s: %w", b.Key, res.Error)
		}
		if res.RowsAffected == 1 {
			awarded = append(awarded, b)
		}
	}
	return awarded, nil
}

func (s *Service) afterAward(ctx context.Context, user *models.User, result *AwardResult) {
	m := metrics.Get()
	m.PointsAwardedTotal.WithLabelValues(string(result.Action)).Add(float64(result.Points))
	for _, b := range result.Badges {
		m.BadgesAwardedTotal.WithLabelValues(b.Key).Inc()
	}

	s.updateLeaderboard(ctx, user.ID, user.Points)

	logger.Log.Debug("Points awarded",
		logger.WithUserID(user.ID),
		zap.String("action", string(result.Action)),
		zap.Int("points", result.Points),
		zap.Int("total", result.Total))

	if s.notifier == nil {
		return
	}
	s.notifier.PointsAwarded(user, result)
	for _, b := range result.Badges {
		s.notifier.BadgeEarned(user, b)
	}
	if result.LeveledUp() {
		s.notifier.LevelUp(user, result.Level, result.PreviousLevel)
	}
}

// CheckInResult is returned by the daily check-in
type CheckInResult struct {
	*AwardResult
	StreakDays     int  `json:"streak_days"`
	AlreadyChecked bool `json:"already_checked_in"`
}

// CheckIn records today's visit: it awards daily_login once per UTC day
// and extends or resets the streak.
func (s *Service) CheckIn(ctx context.Context, userID string) (*CheckInResult, error) {
	now := s.now()
	today := Day(now)

	var streak int
	result, err := s.award(ctx, userID, ActionDailyLogin, today, func(tx *gorm.DB, user *models.User) error {
		streak = nextStreak(user.LastActiveDate, today, user.StreakDays)
		err := tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumns(map[string]interface{}{
			"streak_days":      streak,
			"last_active_date": today,
			"last_active_at":   now,
		}).Error
		if err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
		user.StreakDays = streak
		user.LastActiveDate = today
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Awarded {
		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		streak = user.StreakDays
	}
	return &CheckInResult{AwardResult: result, StreakDays: streak, AlreadyChecked: !result.Awarded}, nil
}

// Summary is a member's points overview
type Summary struct {
	Points          int                  `json:"points"`
	Level           int                  `json:"level"`
	NextLevelPoints int                  `json:"next_level_points"`
	Progress        int                  `json:"progress"`
	StreakDays      int                  `json:"streak_days"`
	Rank            int64                `json:"rank"`
	Recent          []*models.PointEvent `json:"recent"`
}

// GetSummary returns points, level progress, rank and the latest awards
func (s *Service) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent := []*models.PointEvent{}
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(10).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("load recent points: %w", err)
	}

	rank, err := s.Rank(ctx, user)
	if err != nil {
		logger.Log.Warn("Failed to compute rank", logger.WithUserID(userID), zap.Error(err))
	}

	level := LevelFor(user.Points)
	return &Summary{
		Points:          user.Points,
		Level:           level,
		NextLevelPoints: PointsForLevel(level + 1),
		Progress:        LevelProgress(user.Points),
		StreakDays:      user.StreakDays,
		Rank:            rank,
		Recent:          recent,
	}, nil
}

// EarnedBadge is a badge with the time it was earned
type EarnedBadge struct {
	Badge
	AwardedAt time.Time `json:"awarded_at"`
}

// UserBadges lists the badges a member has earned, oldest first
func (s *Service) UserBadges(ctx context.Context, userID string) ([]EarnedBadge, error) {
	var rows []models.UserBadge
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]EarnedBadge, 0, len(rows))
	for _, r := range rows {
		b, ok := BadgeByKey(r.BadgeKey)
		if !ok {
			continue
		}
		out = append(out, EarnedBadge{Badge: b, AwardedAt: r.AwardedAt})
	}
	return out, nil
}
