package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) createUser(username string) *models.User {
	u := &models.User{Email: username + "@example.com", Username: username, DisplayName: username}
	s.Require().NoError(NewUserRepository(s.db).CreateUser(s.ctx, u))
	return u
}

func (s *RepositoryTestSuite) TestCatalogListFiltersAndPaging() {
	repo := NewCatalogRepository[models.Tool](s.db, ToolSchema)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		tool := &models.Tool{
			Name:      fmt.Sprintf("Tool %02d", i),
			Slug:      fmt.Sprintf("tool-%02d", i),
			Category:  []string{"editing", "voice"}[i%2],
			Pricing:   models.PricingFree,
			Rating:    float64(i % 5),
			Tags:      models.StringArray{"ai"},
			Published: i != 24,
		}
		tool.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(repo.Create(s.ctx, tool))
	}

	items, total, err := repo.List(s.ctx, ListOptions{})
	s.Require().NoError(err)
	s.Equal(int64(24), total, "unpublished rows are hidden")
	s.Len(items, DefaultLimit)
	s.Equal("tool-23", items[0].Slug, "newest first by default")

	items, total, err = repo.List(s.ctx, ListOptions{Category: "voice", Limit: 500})
	s.Require().NoError(err)
	s.Equal(int64(12), total)
	s.Len(items, 12)

	items, _, err = repo.List(s.ctx, ListOptions{Sort: SortOldest, Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal([]string{"tool-01", "tool-02"}, []string{items[0].Slug, items[1].Slug})

	items, total, err = repo.List(s.ctx, ListOptions{Query: "tool 1", IncludeUnpublished: true})
	s.Require().NoError(err)
	s.Equal(int64(10), total)

	_, total, err = repo.List(s.ctx, ListOptions{Tag: "AI"})
	s.Require().NoError(err)
	s.Equal(int64(24), total)

	_, total, err = repo.List(s.ctx, ListOptions{Fields: map[string]string{"pricing": "paid"}})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *RepositoryTestSuite) TestCatalogGetAndNotFound() {
	repo := NewCatalogRepository[models.Niche](s.db, NicheSchema)
	n := &models.Niche{Name: "Stoicism", Slug: "stoicism", Published: true}
	s.Require().NoError(repo.Create(s.ctx, n))
	draft := &models.Niche{Name: "Draft", Slug: "draft"}
	s.Require().NoError(repo.Create(s.ctx, draft))

	got, err := repo.GetBySlug(s.ctx, "stoicism", false)
	s.Require().NoError(err)
	s.Equal(n.ID, got.ID)

	_, err = repo.GetBySlug(s.ctx, "draft", false)
	s.ErrorIs(err, ErrNotFound)

	got, err = repo.GetBySlug(s.ctx, "draft", true)
	s.Require().NoError(err)
	s.Equal(draft.ID, got.ID)

	_, err = repo.GetByID(s.ctx, "missing", true)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestCatalogDuplicateSlug() {
	repo := NewCatalogRepository[models.Article](s.db, ArticleSchema)
	s.Require().NoError(repo.Create(s.ctx, &models.Article{Title: "A", Slug: "same"}))
	err := repo.Create(s.ctx, &models.Article{Title: "B", Slug: "same"})
	s.ErrorIs(err, ErrDuplicate)

	exists, err := repo.SlugExists(s.ctx, "same", "")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositoryTestSuite) TestCatalogCategoriesIncrementDelete() {
	repo := NewCatalogRepository[models.Article](s.db, ArticleSchema)
	a := &models.Article{Title: "A", Slug: "a", Category: "growth", Published: true}
	s.Require().NoError(repo.Create(s.ctx, a))
	s.Require().NoError(repo.Create(s.ctx, &models.Article{Title: "B", Slug: "b", Category: "growth", Published: true}))
	s.Require().NoError(repo.Create(s.ctx, &models.Article{Title: "C", Slug: "c", Category: "tools", Published: true}))

	cats, err := repo.Categories(s.ctx, false)
	s.Require().NoError(err)
	s.Equal([]models.CategoryCount{{Category: "growth", Count: 2}, {Category: "tools", Count: 1}}, cats)

	s.Require().NoError(repo.Increment(s.ctx, a.ID, "view_count"))
	s.Require().NoError(repo.Increment(s.ctx, a.ID, "view_count"))
	s.ErrorIs(repo.Increment(s.ctx, a.ID, "title"), ErrInvalidInput)
	got, err := repo.GetByID(s.ctx, a.ID, false)
	s.Require().NoError(err)
	s.Equal(2, got.ViewCount)

	s.Require().NoError(repo.Delete(s.ctx, a.ID))
	s.ErrorIs(repo.Delete(s.ctx, a.ID), ErrNotFound)
	_, err = repo.GetByID(s.ctx, a.ID, true)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestCatalogGetBySlugsKeepsOrder() {
	repo := NewCatalogRepository[models.Niche](s.db, NicheSchema)
	for _, slug := range []string{"a", "b", "c"} {
		s.Require().NoError(repo.Create(s.ctx, &models.Niche{Name: slug, Slug: slug, Published: true}))
	}
	got, err := repo.GetBySlugs(s.ctx, []string{"c", "missing", "a"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("c", got[0].Slug)
	s.Equal("a", got[1].Slug)
}

func (s *RepositoryTestSuite) TestForumVotesAreIdempotent() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	repo := NewForumRepository(s.db)

	post := &models.ForumPost{AuthorID: author.ID, Category: models.ForumHelp, Title: "Q", Slug: "q", Body: "?"}
	s.Require().NoError(repo.CreatePost(s.ctx, post))

	created, err := repo.Vote(s.ctx, voter.ID, models.VoteTargetPost, post.ID)
	s.Require().NoError(err)
	s.True(created)
	created, err = repo.Vote(s.ctx, voter.ID, models.VoteTargetPost, post.ID)
	s.Require().NoError(err)
	s.False(created)

	got, err := repo.GetPost(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(1, got.UpvoteCount)

	removed, err := repo.Unvote(s.ctx, voter.ID, models.VoteTargetPost, post.ID)
	s.Require().NoError(err)
	s.True(removed)
	removed, err = repo.Unvote(s.ctx, voter.ID, models.VoteTargetPost, post.ID)
	s.Require().NoError(err)
	s.False(removed)

	got, err = repo.GetPost(s.ctx, "q")
	s.Require().NoError(err)
	s.Equal(0, got.UpvoteCount)
}

func (s *RepositoryTestSuite) TestForumRepliesAndAccept() {
	author := s.createUser("author")
	helper := s.createUser("helper")
	repo := NewForumRepository(s.db)

	post := &models.ForumPost{AuthorID: author.ID, Category: models.ForumHelp, Title: "Q", Slug: "q", Body: "?"}
	s.Require().NoError(repo.CreatePost(s.ctx, post))

	first := &models.ForumReply{PostID: post.ID, AuthorID: helper.ID, Body: "first"}
	second := &models.ForumReply{PostID: post.ID, AuthorID: helper.ID, Body: "second"}
	s.Require().NoError(repo.CreateReply(s.ctx, first))
	s.Require().NoError(repo.CreateReply(s.ctx, second))

	s.Require().NoError(repo.AcceptReply(s.ctx, post, first))
	s.Require().NoError(repo.AcceptReply(s.ctx, post, second))

	got, err := repo.GetPostWithReplies(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(2, got.ReplyCount)
	s.Require().Len(got.Replies, 2)
	s.Equal("first", got.Replies[0].Body)
	s.False(got.Replies[0].Accepted)
	s.True(got.Replies[1].Accepted)
	s.Require().NotNil(got.AcceptedReplyID)
	s.Equal(second.ID, *got.AcceptedReplyID)
}

func (s *RepositoryTestSuite) TestForumListPinnedFirst() {
	author := s.createUser("author")
	repo := NewForumRepository(s.db)
	base := time.Now().UTC().Add(-time.Hour)
	for i, pinned := range []bool{true, false, false} {
		p := &models.ForumPost{
			AuthorID: author.ID, Category: models.ForumGeneral, Body: "b",
			Title: fmt.Sprintf("P%d", i), Slug: fmt.Sprintf("p%d", i), Pinned: pinned,
		}
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(repo.CreatePost(s.ctx, p))
	}

	posts, total, err := repo.ListPosts(s.ctx, ForumListOptions{})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Equal([]string{"p0", "p2", "p1"}, []string{posts[0].Slug, posts[1].Slug, posts[2].Slug})
	s.Require().NotNil(posts[0].Author)
	s.Equal("author", posts[0].Author.Username)
}

func (s *RepositoryTestSuite) TestLearningCompletion() {
	user := s.createUser("learner")
	paths := NewCatalogRepository[models.LearningPath](s.db, PathSchema)
	repo := NewLearningRepository(s.db)

	path := &models.LearningPath{Title: "Start", Slug: "start", Published: true}
	s.Require().NoError(paths.Create(s.ctx, path))
	l1 := &models.Lesson{PathID: path.ID, Title: "One", Slug: "one"}
	l2 := &models.Lesson{PathID: path.ID, Title: "Two", Slug: "two"}
	s.Require().NoError(repo.CreateLesson(s.ctx, l1))
	s.Require().NoError(repo.CreateLesson(s.ctx, l2))
	s.Equal(1, l1.Position)
	s.Equal(2, l2.Position)

	res, err := repo.CompleteLesson(s.ctx, user.ID, l1)
	s.Require().NoError(err)
	s.True(res.NewlyCompleted)
	s.True(res.NewlyEnrolled)
	s.False(res.PathCompleted)
	s.Equal(50, res.Progress.Percent)

	res, err = repo.CompleteLesson(s.ctx, user.ID, l1)
	s.Require().NoError(err)
	s.False(res.NewlyCompleted)
	s.False(res.NewlyEnrolled)

	res, err = repo.CompleteLesson(s.ctx, user.ID, l2)
	s.Require().NoError(err)
	s.True(res.PathCompleted)
	s.Equal(100, res.Progress.Percent)
	s.NotNil(res.Progress.CompletedAt)

	res, err = repo.CompleteLesson(s.ctx, user.ID, l2)
	s.Require().NoError(err)
	s.False(res.PathCompleted, "completion is reported once")

	p, err := repo.Progress(s.ctx, user.ID, path.ID)
	s.Require().NoError(err)
	s.True(p.Enrolled)
	s.Equal([]string{l1.ID, l2.ID}, p.LessonIDs)

	loaded, err := repo.GetPathWithLessons(s.ctx, "start", false)
	s.Require().NoError(err)
	s.Equal(2, loaded.LessonCount)
	s.Equal("one", loaded.Lessons[0].Slug)

	enrollments, err := repo.Enrollments(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(enrollments, 1)
	s.Equal("start", enrollments[0].Path.Slug)
}

func (s *RepositoryTestSuite) TestUserLookups() {
	repo := NewUserRepository(s.db)
	u := s.createUser("MixedCase")
	s.Equal(models.RoleMember, u.Role)
	s.Equal(1, u.Level)

	got, err := repo.GetUserByUsername(s.ctx, "mixedcase")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)

	_, err = repo.GetUserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(err, ErrUserNotFound)

	err = repo.CreateUser(s.ctx, &models.User{Email: u.Email, Username: "other", DisplayName: "o"})
	s.ErrorIs(err, ErrDuplicate)

	s.Require().NoError(repo.UpdateFields(s.ctx, u.ID, map[string]interface{}{"points": 40}))
	top, err := repo.TopByPoints(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(40, top[0].Points)
}

func TestListOptionsNormalize(t *testing.T) {
	o := ListOptions{Limit: 0, Offset: -5, Sort: "bogus"}
	o.Normalize()
	assert.Equal(t, DefaultLimit, o.Limit)
	assert.Equal(t, 0, o.Offset)
	assert.Equal(t, SortNewest, o.Sort)

	o = ListOptions{Limit: 1000, Sort: SortTitle}
	o.Normalize()
	assert.Equal(t, MaxLimit, o.Limit)
	assert.Equal(t, SortTitle, o.Sort)
}

func TestLikePatternEscapes(t *testing.T) {
	require.Equal(t, `%50\% off%`, likePattern(" 50% OFF "))
}
