package seed

import (
	"context"
	"testing"

	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	s := NewSeeder(db, 42)
	s.SetPasswordCost(bcrypt.MinCost)
	s.SetCounts(Counts{
		Users: 6, Articles: 5, Tools: 4, Templates: 3, Guides: 3, Niches: 4,
		Paths: 2, Lessons: 3, ForumPosts: 5, Replies: 3, Subscribers: 4,
	})
	return s, db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSeedDevCreatesContent(t *testing.T) {
	s, db := newTestSeeder(t)
	feed := stream.NewMockStreamClient()
	s.SetFeedClient(feed)

	require.NoError(t, s.SeedDev(context.Background()))

	assert.Equal(t, int64(6), count(t, db, &models.User{}))
	assert.Equal(t, int64(5), count(t, db, &models.Article{}))
	assert.Equal(t, int64(4), count(t, db, &models.Tool{}))
	assert.Equal(t, int64(3), count(t, db, &models.Template{}))
	assert.Equal(t, int64(3), count(t, db, &models.PlatformGuide{}))
	assert.Equal(t, int64(4), count(t, db, &models.Niche{}))
	assert.Equal(t, int64(2), count(t, db, &models.LearningPath{}))
	assert.Equal(t, int64(6), count(t, db, &models.Lesson{}))
	assert.Equal(t, int64(5), count(t, db, &models.ForumPost{}))
	assert.Equal(t, int64(4), count(t, db, &models.Subscriber{}))
	assert.Len(t, feed.Published(), 5)

	var admin models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).First(&admin).Error)
	require.NotNil(t, admin.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*admin.PasswordHash), []byte(DefaultPassword)))

	// every thread author was paid for posting
	var posts []models.ForumPost
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		var events int64
		require.NoError(t, db.Model(&models.PointEvent{}).
			Where("user_id = ? AND action = ? AND ref_id = ?", p.AuthorID, "forum_post", p.ID).
			Count(&events).Error)
		assert.Equal(t, int64(1), events)
	}
}

func TestSeedDevIsRepeatable(t *testing.T) {
	s, db := newTestSeeder(t)
	require.NoError(t, s.SeedDev(context.Background()))
	require.NoError(t, s.SeedDev(context.Background()))

	assert.Equal(t, int64(6), count(t, db, &models.User{}))
	assert.Equal(t, int64(5), count(t, db, &models.Article{}))
	assert.Equal(t, int64(2), count(t, db, &models.LearningPath{}))
}

func TestSeedTestAccounts(t *testing.T) {
	s, db := newTestSeeder(t)
	require.NoError(t, s.SeedTest(context.Background()))

	var alice models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)
	assert.Equal(t, models.RoleAdmin, alice.Role)
	assert.Equal(t, "alice@example.com", alice.Email)

	var eddie models.User
	require.NoError(t, db.Where("username = ?", "eddie").First(&eddie).Error)
	assert.True(t, eddie.Role.CanEdit())
}

func TestCleanOnlyRemovesSeedData(t *testing.T) {
	s, db := newTestSeeder(t)
	require.NoError(t, s.SeedDev(context.Background()))

	kept := models.Tool{Name: "Real Tool", Slug: "real-tool", Published: true}
	require.NoError(t, db.Create(&kept).Error)
	member := models.User{Email: "someone@contentanonymity.com", Username: "someone", DisplayName: "Someone"}
	require.NoError(t, db.Create(&member).Error)

	require.NoError(t, s.Clean())

	assert.Equal(t, int64(1), count(t, db, &models.Tool{}))
	assert.Equal(t, int64(1), count(t, db, &models.User{}))
	assert.Zero(t, count(t, db, &models.Article{}))
	assert.Zero(t, count(t, db, &models.ForumPost{}))
	assert.Zero(t, count(t, db, &models.Lesson{}))
	assert.Zero(t, count(t, db, &models.PointEvent{}))
	assert.Zero(t, count(t, db, &models.Subscriber{}))
}
