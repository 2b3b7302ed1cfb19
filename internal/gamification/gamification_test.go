package gamification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestLevels(t *testing.T) {
	cases := []struct {
		points, level int
	}{
		{0, 1}, {49, 1}, {50, 2}, {199, 2}, {200, 3}, {450, 4}, {800, 5}, {4050, 10},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, LevelFor(c.points), "points=%d", c.points)
	}

	assert.Equal(t, 0, PointsForLevel(1))
	assert.Equal(t, 50, PointsForLevel(2))
	assert.Equal(t, 200, PointsForLevel(3))
	for n := 1; n <= 20; n++ {
		assert.Equal(t, n, LevelFor(PointsForLevel(n)))
	}

	assert.Equal(t, 0, LevelProgress(0))
	assert.Equal(t, 50, LevelProgress(25))
	assert.Equal(t, 50, LevelProgress(125))
}

func TestPointTable(t *testing.T) {
	assert.Equal(t, 5, PointsFor(ActionDailyLogin))
	assert.Equal(t, 100, PointsFor(ActionPathComplete))
	assert.Equal(t, 0, PointsFor("teleport"))
	assert.False(t, Action("teleport").Valid())
	assert.True(t, ActionForumReply.Valid())
}

func TestNextStreak(t *testing.T) {
	assert.Equal(t, 1, nextStreak("", "2026-03-10", 0))
	assert.Equal(t, 4, nextStreak("2026-03-09", "2026-03-10", 3))
	assert.Equal(t, 1, nextStreak("2026-03-07", "2026-03-10", 3))
	assert.Equal(t, 3, nextStreak("2026-03-10", "2026-03-10", 3))
	assert.Equal(t, 2, nextStreak("2026-02-28", "2026-03-01", 1))
}

func TestBadgeCatalog(t *testing.T) {
	catalog := Catalog()
	assert.Len(t, catalog, 9)
	b, ok := BadgeByKey("on_fire")
	require.True(t, ok)
	assert.Equal(t, "On Fire", b.Name)
	_, ok = BadgeByKey("nope")
	assert.False(t, ok)

	got := earnedBadges(stats{counts: map[Action]int64{ActionForumPost: 10}, level: 5}, map[string]bool{"first_post": true})
	keys := make([]string, len(got))
	for i, b := range got {
		keys[i] = b.Key
	}
	assert.Equal(t, []string{"conversation_starter", "rising_star"}, keys)
}

type recordingNotifier struct {
	mu      sync.Mutex
	points  []*AwardResult
	badges  []string
	levelUp []int
}

func (n *recordingNotifier) PointsAwarded(_ *models.User, r *AwardResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.points = append(n.points, r)
}

func (n *recordingNotifier) BadgeEarned(_ *models.User, b Badge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.badges = append(n.badges, b.Key)
}

func (n *recordingNotifier) LevelUp(_ *models.User, level, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levelUp = append(n.levelUp, level)
}

// memoryBoard is an in-process sorted set
type memoryBoard struct {
	scores map[string]float64
	fail   bool
}

func (b *memoryBoard) ZAdd(_ context.Context, _ string, score float64, member string) error {
	if b.fail {
		return errors.New("redis down")
	}
	b.scores[member] = score
	return nil
}

func (b *memoryBoard) sorted() []redis.Z {
	out := make([]redis.Z, 0, len(b.scores))
	for m, s := range b.scores {
		out = append(out, redis.Z{Member: m, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (b *memoryBoard) ZRevRangeWithScores(_ context.Context, _ string, start, stop int64) ([]redis.Z, error) {
	if b.fail {
		return nil, errors.New("redis down")
	}
	all := b.sorted()
	if start >= int64(len(all)) {
		return nil, nil
	}
	if stop >= int64(len(all)) {
		stop = int64(len(all)) - 1
	}
	return all[start : stop+1], nil
}

func (b *memoryBoard) ZRevRank(_ context.Context, _ string, member string) (int64, error) {
	for i, z := range b.sorted() {
		if z.Member == member {
			return int64(i), nil
		}
	}
	return 0, redis.Nil
}

type ServiceSuite struct {
	suite.Suite
	db       *gorm.DB
	svc      *Service
	notifier *recordingNotifier
	now      time.Time
}

func (s *ServiceSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)
	s.db = db
	s.svc = NewService(db, repository.NewUserRepository(db), nil)
	s.notifier = &recordingNotifier{}
	s.svc.SetNotifier(s.notifier)
	s.now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) createUser(username string, points int) *models.User {
	u := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
		Points:      points,
		Level:       LevelFor(points),
	}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *ServiceSuite) TestAwardIsIdempotentPerReference() {
	ctx := context.Background()
	u := s.createUser("alice", 0)

	r, err := s.svc.Award(ctx, u.ID, ActionForumReply, "reply-1")
	s.Require().NoError(err)
	s.True(r.Awarded)
	s.Equal(5, r.Total)

	r, err = s.svc.Award(ctx, u.ID, ActionForumReply, "reply-1")
	s.Require().NoError(err)
	s.False(r.Awarded)
	s.Equal(5, r.Total)

	r, err = s.svc.Award(ctx, u.ID, ActionForumReply, "reply-2")
	s.Require().NoError(err)
	s.True(r.Awarded)
	s.Equal(10, r.Total)

	var events int64
	s.db.Model(&models.PointEvent{}).Where("user_id = ?", u.ID).Count(&events)
	s.Equal(int64(2), events)
	s.Len(s.notifier.points, 2)
}

func (s *ServiceSuite) TestAwardRejectsUnknownAction() {
	u := s.createUser("alice", 0)
	_, err := s.svc.Award(context.Background(), u.ID, "teleport", "x")
	s.ErrorIs(err, ErrUnknownAction)
}

func (s *ServiceSuite) TestAwardUnknownUser() {
	_, err := s.svc.Award(context.Background(), "missing", ActionForumPost, "p1")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *ServiceSuite) TestFirstPostBadgeAndLevelUp() {
	ctx := context.Background()
	u := s.createUser("alice", 40)

	r, err := s.svc.Award(ctx, u.ID, ActionForumPost, "post-1")
	s.Require().NoError(err)
	s.Equal(55, r.Total)
	s.Equal(1, r.PreviousLevel)
	s.Equal(2, r.Level)
	s.True(r.LeveledUp())
	s.Require().Len(r.Badges, 1)
	s.Equal("first_post", r.Badges[0].Key)

	s.Equal([]string{"first_post"}, s.notifier.badges)
	s.Equal([]int{2}, s.notifier.levelUp)

	// a second post does not re-award the badge
	r, err = s.svc.Award(ctx, u.ID, ActionForumPost, "post-2")
	s.Require().NoError(err)
	s.Empty(r.Badges)

	badges, err := s.svc.UserBadges(ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(badges, 1)
	s.Equal("First Post", badges[0].Name)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, "id = ?", u.ID).Error)
	s.Equal(2, stored.Level)
}

func (s *ServiceSuite) TestCheckInStreak() {
	ctx := context.Background()
	u := s.createUser("alice", 0)

	r, err := s.svc.CheckIn(ctx, u.ID)
	s.Require().NoError(err)
	s.True(r.Awarded)
	s.Equal(1, r.StreakDays)
	s.False(r.AlreadyChecked)

	r, err = s.svc.CheckIn(ctx, u.ID)
	s.Require().NoError(err)
	s.True(r.AlreadyChecked)
	s.Equal(1, r.StreakDays)
	s.Equal(5, r.Total)

	for day := 1; day <= 6; day++ {
		s.now = s.now.AddDate(0, 0, 1)
		r, err = s.svc.CheckIn(ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(day+1, r.StreakDays)
	}
	s.Require().Len(r.Badges, 1)
	s.Equal("on_fire", r.Badges[0].Key)

	// skipping a day resets
	s.now = s.now.AddDate(0, 0, 2)
	r, err = s.svc.CheckIn(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(1, r.StreakDays)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, "id = ?", u.ID).Error)
	s.Equal("2026-03-18", stored.LastActiveDate)
	s.Equal(40, stored.Points)
}

func (s *ServiceSuite) TestSummary() {
	ctx := context.Background()
	s.createUser("bob", 500)
	u := s.createUser("alice", 120)

	_, err := s.svc.Award(ctx, u.ID, ActionLessonComplete, "lesson-1")
	s.Require().NoError(err)

	sum, err := s.svc.GetSummary(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(130, sum.Points)
	s.Equal(2, sum.Level)
	s.Equal(200, sum.NextLevelPoints)
	s.Equal(53, sum.Progress)
	s.Equal(int64(2), sum.Rank)
	s.Len(sum.Recent, 1)
}

func (s *ServiceSuite) TestLeaderboardFromDatabase() {
	ctx := context.Background()
	s.createUser("carol", 10)
	s.createUser("bob", 300)
	s.createUser("zero", 0)
	s.createUser("alice", 50)

	entries, err := s.svc.Leaderboard(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("bob", entries[0].Username)
	s.Equal(1, entries[0].Rank)
	s.Equal(3, entries[0].Level)
	s.Equal("carol", entries[2].Username)
}

func (s *ServiceSuite) TestLeaderboardFromRedis() {
	ctx := context.Background()
	board := &memoryBoard{scores: map[string]float64{}}
	s.svc.board = board

	alice := s.createUser("alice", 0)
	bob := s.createUser("bob", 0)

	_, err := s.svc.Award(ctx, alice.ID, ActionForumPost, "p1")
	s.Require().NoError(err)
	_, err = s.svc.Award(ctx, bob.ID, ActionPathComplete, "path-1")
	s.Require().NoError(err)
	s.Equal(float64(100), board.scores[bob.ID])

	entries, err := s.svc.Leaderboard(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("bob", entries[0].Username)
	s.Equal(15, entries[1].Points)

	rank, err := s.svc.Rank(ctx, &models.User{Model: alice.Model, Points: 15})
	s.Require().NoError(err)
	s.Equal(int64(2), rank)

	board.fail = true
	entries, err = s.svc.Leaderboard(ctx, 10)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *ServiceSuite) TestSyncLeaderboard() {
	board := &memoryBoard{scores: map[string]float64{}}
	s.svc.board = board
	s.createUser("alice", 70)
	s.createUser("zero", 0)

	n, err := s.svc.SyncLeaderboard(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Len(board.scores, 1)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
