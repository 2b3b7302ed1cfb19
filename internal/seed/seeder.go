// Package seed fills a database with fake catalog, community and learning
// content for local development and end-to-end tests.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/media"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/contentanonymity/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const (
	// Seeded accounts live on this domain so Clean can find them
	seedEmailDomain = "example.com"
	// Seeded catalog rows carry external ids with this prefix
	seedIDPrefix = "seed-"
	// DefaultPassword is the password of every seeded account
	DefaultPassword = "password123"
)

// Counts controls how much SeedDev creates
type Counts struct {
	Users       int
	Articles    int
	Tools       int
	Templates   int
	Guides      int
	Niches      int
	Paths       int
	Lessons     int // per path
	ForumPosts  int
	Replies     int // upper bound per post
	Subscribers int
}

// DevCounts is the default development data set
func DevCounts() Counts {
	return Counts{
		Users:       40,
		Articles:    30,
		Tools:       25,
		Templates:   20,
		Guides:      16,
		Niches:      20,
		Paths:       4,
		Lessons:     6,
		ForumPosts:  60,
		Replies:     6,
		Subscribers: 50,
	}
}

// Seeder handles database seeding operations
type Seeder struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	game    *gamification.Service
	feed    *stream.Publisher
	counts  Counts
	pwdCost int
}

// NewSeeder creates a new seeder instance. seed 0 picks a random seed.
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	users := repository.NewUserRepository(db)
	return &Seeder{
		db:      db,
		faker:   gofakeit.New(seed),
		game:    gamification.NewService(db, users, nil),
		counts:  DevCounts(),
		pwdCost: bcrypt.DefaultCost,
	}
}

// SetGamification replaces the points service, e.g. one backed by the Redis leaderboard
func (s *Seeder) SetGamification(g *gamification.Service) {
	s.game = g
}

// SetFeedClient publishes seeded forum threads to the Stream activity feed
func (s *Seeder) SetFeedClient(client stream.FeedClient) {
	s.feed = stream.NewPublisher(client)
}

// SetCounts overrides the dev data set size
func (s *Seeder) SetCounts(c Counts) {
	s.counts = c
}

// SetPasswordCost lowers the bcrypt cost, for tests
func (s *Seeder) SetPasswordCost(cost int) {
	s.pwdCost = cost
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context) error {
	c := s.counts
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(ctx, c.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	editor := s.firstWithRole(users, models.RoleEditor)

	log("Creating articles...")
	if err := s.seedArticles(c.Articles, editor); err != nil {
		return fmt.Errorf("failed to seed articles: %w", err)
	}
	log("Creating tools...")
	if err := s.seedTools(c.Tools); err != nil {
		return fmt.Errorf("failed to seed tools: %w", err)
	}
	log("Creating templates...")
	if err := s.seedTemplates(c.Templates); err != nil {
		return fmt.Errorf("failed to seed templates: %w", err)
	}
	log("Creating platform guides...")
	if err := s.seedGuides(c.Guides); err != nil {
		return fmt.Errorf("failed to seed guides: %w", err)
	}
	log("Creating niches...")
	if err := s.seedNiches(c.Niches); err != nil {
		return fmt.Errorf("failed to seed niches: %w", err)
	}

	log("Creating learning paths...")
	paths, err := s.seedPaths(c.Paths, c.Lessons)
	if err != nil {
		return fmt.Errorf("failed to seed learning paths: %w", err)
	}
	log("Creating enrollments...")
	if err := s.seedProgress(ctx, users, paths); err != nil {
		return fmt.Errorf("failed to seed enrollments: %w", err)
	}

	log("Creating forum threads...")
	if err := s.seedForum(ctx, users, c.ForumPosts, c.Replies); err != nil {
		return fmt.Errorf("failed to seed forum: %w", err)
	}

	log("Creating newsletter subscribers...")
	if err := s.seedSubscribers(c.Subscribers); err != nil {
		return fmt.Errorf("failed to seed subscribers: %w", err)
	}

	if n, err := s.game.SyncLeaderboard(ctx); err != nil {
		logger.WarnWithFields("Leaderboard sync failed", err)
	} else {
		logger.Log.Info("Leaderboard synced", zap.Int("users", n))
	}
	return nil
}

type fixedUser struct {
	username    string
	displayName string
	role        models.Role
}

// testUsers are the accounts end-to-end tests log in with
var testUsers = []fixedUser{
	{"alice", "Alice Admin", models.RoleAdmin},
	{"eddie", "Eddie Editor", models.RoleEditor},
	{"bob", "Bob Builder", models.RoleMember},
	{"carol", "Carol Creator", models.RoleMember},
}

// SeedTest seeds the fixed accounts and a small, stable catalog
func (s *Seeder) SeedTest(ctx context.Context) error {
	users := make([]models.User, 0, len(testUsers))
	for _, fixed := range testUsers {
		user, err := s.ensureUser(fixed.username, fixed.username+"@"+seedEmailDomain, fixed.displayName, fixed.role)
		if err != nil {
			return fmt.Errorf("failed to create test user %s: %w", fixed.username, err)
		}
		users = append(users, *user)
	}

	if err := s.seedArticles(3, &users[1]); err != nil {
		return fmt.Errorf("failed to seed articles: %w", err)
	}
	if err := s.seedTools(3); err != nil {
		return fmt.Errorf("failed to seed tools: %w", err)
	}
	if err := s.seedNiches(3); err != nil {
		return fmt.Errorf("failed to seed niches: %w", err)
	}
	if _, err := s.seedPaths(1, 3); err != nil {
		return fmt.Errorf("failed to seed learning paths: %w", err)
	}
	return s.seedForum(ctx, users, 2, 2)
}

// Clean removes everything the seeder created and leaves other rows alone
func (s *Seeder) Clean() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var userIDs []string
		if err := tx.Unscoped().Model(&models.User{}).
			Where("email LIKE ?", "%@"+seedEmailDomain).
			Pluck("id", &userIDs).Error; err != nil {
			return err
		}

		var pathIDs []string
		if err := tx.Unscoped().Model(&models.LearningPath{}).
			Where("external_id LIKE ?", seedIDPrefix+"%").
			Pluck("id", &pathIDs).Error; err != nil {
			return err
		}

		steps := []struct {
			name  string
			model interface{}
			where string
			args  []interface{}
		}{
			{"forum_votes", &models.ForumVote{}, "user_id IN ?", []interface{}{userIDs}},
			{"forum_replies", &models.ForumReply{}, "author_id IN ?", []interface{}{userIDs}},
			{"forum_posts", &models.ForumPost{}, "author_id IN ?", []interface{}{userIDs}},
			{"lesson_progress", &models.LessonProgress{}, "user_id IN ? OR path_id IN ?", []interface{}{userIDs, pathIDs}},
			{"enrollments", &models.Enrollment{}, "user_id IN ? OR path_id IN ?", []interface{}{userIDs, pathIDs}},
			{"lessons", &models.Lesson{}, "path_id IN ?", []interface{}{pathIDs}},
			{"learning_paths", &models.LearningPath{}, "id IN ?", []interface{}{pathIDs}},
			{"point_events", &models.PointEvent{}, "user_id IN ?", []interface{}{userIDs}},
			{"user_badges", &models.UserBadge{}, "user_id IN ?", []interface{}{userIDs}},
			{"articles", &models.Article{}, "external_id LIKE ?", []interface{}{seedIDPrefix + "%"}},
			{"tools", &models.Tool{}, "external_id LIKE ?", []interface{}{seedIDPrefix + "%"}},
			{"templates", &models.Template{}, "external_id LIKE ?", []interface{}{seedIDPrefix + "%"}},
			{"platform_guides", &models.PlatformGuide{}, "external_id LIKE ?", []interface{}{seedIDPrefix + "%"}},
			{"niches", &models.Niche{}, "external_id LIKE ?", []interface{}{seedIDPrefix + "%"}},
			{"subscribers", &models.Subscriber{}, "email LIKE ?", []interface{}{"%@" + seedEmailDomain}},
			{"users", &models.User{}, "id IN ?", []interface{}{userIDs}},
		}
		for _, step := range steps {
			// IN () with an empty list matches nothing on every dialect we run
			if err := tx.Unscoped().Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to clean %s: %w", step.name, err)
			}
		}
		return nil
	})
}

// ============================================================================
// USERS
// ============================================================================

var nicheInterests = []string{
	"History", "Finance", "True Crime", "Meditation", "Tech Reviews", "Motivation",
	"Space", "Cooking", "Gaming", "Stoicism", "Travel", "Horror Stories",
}

// seedUsers creates count users; the first two are an admin and an editor
func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	var existing int64
	if err := s.db.Model(&models.User{}).Where("email LIKE ?", "%@"+seedEmailDomain).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing >= int64(count) {
		var users []models.User
		err := s.db.Where("email LIKE ?", "%@"+seedEmailDomain).Order("created_at").Find(&users).Error
		logger.Log.Info("Found existing seed users, skipping creation", zap.Int64("seed_users", existing))
		return users, err
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		role := models.RoleMember
		switch i {
		case 0:
			role = models.RoleAdmin
		case 1:
			role = models.RoleEditor
		}

		username := s.uniqueUsername()
		user, err := s.ensureUser(username, username+"@"+seedEmailDomain, s.faker.Name(), role)
		if err != nil {
			return nil, err
		}

		// Two thirds of the community fill in their profile
		if s.faker.IntRange(0, 2) > 0 {
			user.Bio = s.faker.HipsterSentence()
			user.AvatarURL = fmt.Sprintf("https://api.dicebear.com/7.x/shapes/png?seed=%s", username)
			user.NicheInterests = s.pick(nicheInterests, s.faker.IntRange(1, 3))
			if err := s.db.Save(user).Error; err != nil {
				return nil, err
			}
			s.award(ctx, user.ID, gamification.ActionProfileComplete, user.ID)
		}
		users = append(users, *user)
	}
	return users, nil
}

func (s *Seeder) uniqueUsername() string {
	for {
		name := strings.ToLower(util.Slugify(s.faker.Username()))
		name = strings.ReplaceAll(name, "-", "_")
		if len(name) < 3 {
			continue
		}
		var count int64
		s.db.Model(&models.User{}).Where("username = ?", name).Count(&count)
		if count == 0 {
			return name
		}
	}
}

// ensureUser returns the account with that username, creating it when missing
func (s *Seeder) ensureUser(username, email, displayName string, role models.Role) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ? OR email = ?", username, email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), s.pwdCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedStr := string(hashed)

	user = models.User{
		Email:        email,
		Username:     username,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: &hashedStr,
		Level:        1,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Seeder) firstWithRole(users []models.User, role models.Role) *models.User {
	for i := range users {
		if users[i].Role == role {
			return &users[i]
		}
	}
	return nil
}

// ============================================================================
// CATALOG
// ============================================================================

var (
	articleCategories  = []string{"youtube", "tiktok", "monetization", "ai", "privacy", "growth"}
	toolCategories     = []string{"voice", "video", "editing", "writing", "design"}
	templateCategories = []string{"scripts", "thumbnails", "planning", "analytics"}
	nicheCategories    = []string{"education", "entertainment", "finance", "lifestyle", "technology"}
	platforms          = []models.Platform{
		models.PlatformYouTube, models.PlatformTikTok, models.PlatformInstagram, models.PlatformTwitter,
		models.PlatformReddit, models.PlatformPinterest, models.PlatformPodcast,
	}
	templateFormats = []models.TemplateFormat{
		models.FormatScript, models.FormatThumbnail, models.FormatNotion,
		models.FormatCanva, models.FormatSpreadsheet,
	}
	difficulties = []models.Difficulty{models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced}
	competitions = []models.Competition{models.CompetitionLow, models.CompetitionMedium, models.CompetitionHigh}
	pricings     = []models.Pricing{models.PricingFree, models.PricingFreemium, models.PricingPaid}
)

func seedID(kind string, i int) *string {
	id := fmt.Sprintf("%s%s-%d", seedIDPrefix, kind, i)
	return &id
}

// create inserts row unless a row with the same external id exists
func (s *Seeder) create(row interface{}, externalID *string) error {
	var count int64
	if err := s.db.Model(row).Where("external_id = ?", *externalID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.db.Create(row).Error
}

// slugFor adds the seed index so fake titles never collide
func slugFor(title string, i int) string {
	return fmt.Sprintf("%s-%d", util.Slugify(title), i)
}

var titleCase = cases.Title(language.English)

// headline is a short title-cased phrase
func (s *Seeder) headline() string {
	words := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		words = append(words, s.faker.Word())
	}
	return titleCase.String(strings.Join(words, " "))
}

func (s *Seeder) body() string {
	return s.faker.LoremIpsumParagraph(4, 5, 14, "\n\n")
}

func (s *Seeder) tags() models.StringArray {
	return models.StringArray(s.pick(nicheInterests, s.faker.IntRange(1, 3)))
}

func (s *Seeder) seedArticles(count int, author *models.User) error {
	for i := 1; i <= count; i++ {
		title := s.headline()
		category := s.faker.RandomString(articleCategories)
		published := i%5 != 0
		body := s.body()
		a := &models.Article{
			ExternalID:     seedID("article", i),
			Title:          title,
			Slug:           slugFor(title, i),
			Excerpt:        s.faker.HipsterSentence(),
			Body:           body,
			CoverImageURL:  media.CoverFor(models.KindArticle, category),
			Category:       category,
			Tags:           s.tags(),
			ReadingMinutes: models.ReadingMinutes(body),
			Published:      published,
			Featured:       i <= 3,
			ViewCount:      s.faker.IntRange(0, 5000),
			LikeCount:      s.faker.IntRange(0, 300),
		}
		if author != nil {
			a.AuthorID = &author.ID
		}
		if published {
			at := s.faker.PastDate()
			a.PublishedAt = &at
		}
		if err := s.create(a, a.ExternalID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedTools(count int) error {
	for i := 1; i <= count; i++ {
		name := s.faker.AppName()
		category := s.faker.RandomString(toolCategories)
		t := &models.Tool{
			ExternalID:  seedID("tool", i),
			Name:        name,
			Slug:        slugFor(name, i),
			Description: s.faker.HipsterSentence(),
			Category:    category,
			Pricing:     pricings[s.faker.IntRange(0, len(pricings)-1)],
			WebsiteURL:  s.faker.URL(),
			LogoURL:     media.CoverFor(models.KindTool, category),
			Rating:      float64(s.faker.IntRange(25, 50)) / 10,
			Features:    models.StringArray{s.faker.BuzzWord(), s.faker.BuzzWord()},
			Tags:        s.tags(),
			Featured:    i <= 2,
			Published:   true,
		}
		if err := s.create(t, t.ExternalID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedTemplates(count int) error {
	for i := 1; i <= count; i++ {
		title := s.headline()
		category := s.faker.RandomString(templateCategories)
		t := &models.Template{
			ExternalID:    seedID("template", i),
			Title:         title,
			Slug:          slugFor(title, i),
			Description:   s.faker.HipsterSentence(),
			Category:      category,
			Format:        templateFormats[s.faker.IntRange(0, len(templateFormats)-1)],
			FileURL:       fmt.Sprintf("https://files.example.com/templates/%d.zip", i),
			PreviewURL:    media.CoverFor(models.KindTemplate, category),
			Premium:       i%4 == 0,
			DownloadCount: s.faker.IntRange(0, 900),
			Tags:          s.tags(),
			Published:     true,
		}
		if err := s.create(t, t.ExternalID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedGuides(count int) error {
	for i := 1; i <= count; i++ {
		platform := platforms[(i-1)%len(platforms)]
		title := fmt.Sprintf("Faceless %s: %s", titleCase.String(string(platform)), s.headline())
		g := &models.PlatformGuide{
			ExternalID:        seedID("guide", i),
			Platform:          platform,
			Title:             title,
			Slug:              slugFor(title, i),
			Summary:           s.faker.HipsterSentence(),
			Body:              s.body(),
			Category:          "getting-started",
			Difficulty:        difficulties[s.faker.IntRange(0, len(difficulties)-1)],
			MonetizationNotes: s.faker.HipsterSentence(),
			Tags:              s.tags(),
			Published:         true,
			ViewCount:         s.faker.IntRange(0, 3000),
		}
		if err := s.create(g, g.ExternalID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedNiches(count int) error {
	for i := 1; i <= count; i++ {
		name := nicheInterests[(i-1)%len(nicheInterests)]
		if i > len(nicheInterests) {
			name = fmt.Sprintf("%s %s", name, s.faker.Noun())
		}
		low := float64(s.faker.IntRange(1, 8))
		n := &models.Niche{
			ExternalID:            seedID("niche", i),
			Name:                  name,
			Slug:                  slugFor(name, i),
			Description:           s.faker.HipsterSentence(),
			Category:              s.faker.RandomString(nicheCategories),
			Competition:           competitions[s.faker.IntRange(0, len(competitions)-1)],
			MonetizationPotential: s.faker.IntRange(1, 10),
			CPMLow:                low,
			CPMHigh:               low + float64(s.faker.IntRange(1, 12)),
			FacelessFriendly:      s.faker.IntRange(0, 4) > 0,
			ExampleChannels:       models.StringArray{s.faker.Company(), s.faker.Company()},
			Tags:                  s.tags(),
			Published:             true,
		}
		if err := s.create(n, n.ExternalID); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// LEARNING
// ============================================================================

func (s *Seeder) seedPaths(count, lessons int) ([]models.LearningPath, error) {
	paths := make([]models.LearningPath, 0, count)
	for i := 1; i <= count; i++ {
		title := fmt.Sprintf("%s Channel Bootcamp", nicheInterests[(i-1)%len(nicheInterests)])
		p := models.LearningPath{
			ExternalID:     seedID("path", i),
			Title:          title,
			Slug:           slugFor(title, i),
			Description:    s.faker.HipsterSentence(),
			Level:          difficulties[(i-1)%len(difficulties)],
			EstimatedHours: float64(lessons) * 0.5,
			CoverImageURL:  media.DefaultCover,
			Tags:           s.tags(),
			Published:      true,
		}

		var existing models.LearningPath
		err := s.db.Preload("Lessons").Where("external_id = ?", *p.ExternalID).First(&existing).Error
		if err == nil {
			paths = append(paths, existing)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		for pos := 1; pos <= lessons; pos++ {
			lessonTitle := s.headline()
			p.Lessons = append(p.Lessons, models.Lesson{
				Position:        pos,
				Title:           lessonTitle,
				Slug:            util.Slugify(lessonTitle),
				Body:            s.body(),
				DurationMinutes: s.faker.IntRange(5, 25),
			})
		}
		if err := s.db.Create(&p).Error; err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// seedProgress enrolls about half the users and marks some lessons done
func (s *Seeder) seedProgress(ctx context.Context, users []models.User, paths []models.LearningPath) error {
	if len(paths) == 0 {
		return nil
	}
	for _, u := range users {
		if s.faker.Bool() {
			continue
		}
		path := paths[s.faker.IntRange(0, len(paths)-1)]

		var count int64
		s.db.Model(&models.Enrollment{}).Where("user_id = ? AND path_id = ?", u.ID, path.ID).Count(&count)
		if count > 0 {
			continue
		}
		started := s.faker.PastDate()
		enrollment := models.Enrollment{UserID: u.ID, PathID: path.ID, StartedAt: started}

		done := s.faker.IntRange(0, len(path.Lessons))
		for _, lesson := range path.Lessons[:done] {
			progress := models.LessonProgress{UserID: u.ID, LessonID: lesson.ID, PathID: path.ID, CompletedAt: started}
			if err := s.db.Create(&progress).Error; err != nil {
				return err
			}
			s.award(ctx, u.ID, gamification.ActionLessonComplete, lesson.ID)
		}
		if done == len(path.Lessons) && done > 0 {
			enrollment.CompletedAt = &started
			s.award(ctx, u.ID, gamification.ActionPathComplete, path.ID)
		}
		if err := s.db.Create(&enrollment).Error; err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// COMMUNITY
// ============================================================================

var forumCategories = []models.ForumCategory{
	models.ForumGeneral, models.ForumShowcase, models.ForumHelp,
	models.ForumStrategy, models.ForumMonetization, models.ForumTools,
}

func (s *Seeder) seedForum(ctx context.Context, users []models.User, posts, maxReplies int) error {
	if len(users) == 0 {
		return nil
	}
	for i := 1; i <= posts; i++ {
		author := users[s.faker.IntRange(0, len(users)-1)]
		title := strings.TrimSuffix(s.faker.Question(), "?") + "?"
		post := models.ForumPost{
			AuthorID:       author.ID,
			Category:       forumCategories[s.faker.IntRange(0, len(forumCategories)-1)],
			Title:          title,
			Slug:           fmt.Sprintf("%s-%s", util.Slugify(title), s.faker.LetterN(6)),
			Body:           s.faker.LoremIpsumParagraph(2, 3, 12, "\n\n"),
			Tags:           s.tags(),
			Pinned:         i == 1,
			ViewCount:      s.faker.IntRange(0, 800),
			LastActivityAt: s.faker.PastDate(),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return err
		}
		s.award(ctx, author.ID, gamification.ActionForumPost, post.ID)
		s.publish(ctx, author, &stream.Activity{
			Verb:      stream.VerbPosted,
			Object:    "forum_post:" + post.ID,
			ForeignID: "forum_post:" + post.ID,
			Title:     post.Title,
			Username:  author.Username,
		})

		replies := s.faker.IntRange(0, maxReplies)
		var firstOther *models.ForumReply
		for r := 0; r < replies; r++ {
			replier := users[s.faker.IntRange(0, len(users)-1)]
			reply := models.ForumReply{
				PostID:      post.ID,
				AuthorID:    replier.ID,
				Body:        s.faker.HipsterSentence(),
				UpvoteCount: s.faker.IntRange(0, 12),
			}
			if err := s.db.Create(&reply).Error; err != nil {
				return err
			}
			s.award(ctx, replier.ID, gamification.ActionForumReply, reply.ID)
			if firstOther == nil && replier.ID != author.ID {
				firstOther = &reply
			}
		}

		updates := map[string]interface{}{"reply_count": replies}
		// Help threads with an outside answer get it accepted
		if post.Category == models.ForumHelp && firstOther != nil {
			if err := s.db.Model(firstOther).Update("accepted", true).Error; err != nil {
				return err
			}
			updates["accepted_reply_id"] = firstOther.ID
			s.award(ctx, firstOther.AuthorID, gamification.ActionReplyAccepted, firstOther.ID)
		}

		voters := s.pickUsers(users, s.faker.IntRange(0, 5))
		for _, v := range voters {
			vote := models.ForumVote{ID: s.faker.UUID(), UserID: v.ID, TargetType: models.VoteTargetPost, TargetID: post.ID}
			if err := s.db.Create(&vote).Error; err != nil {
				return err
			}
		}
		updates["upvote_count"] = len(voters)

		if err := s.db.Model(&post).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedSubscribers(count int) error {
	statuses := []models.SubscriberStatus{models.SubscriberPending, models.SubscriberConfirmed, models.SubscriberConfirmed, models.SubscriberUnsubscribed}
	sources := []string{"footer", "article", "popup", "import"}
	for i := 1; i <= count; i++ {
		email := fmt.Sprintf("reader%d@%s", i, seedEmailDomain)
		var existing int64
		s.db.Model(&models.Subscriber{}).Where("email = ?", email).Count(&existing)
		if existing > 0 {
			continue
		}
		sub := models.Subscriber{
			Email:  email,
			Status: statuses[s.faker.IntRange(0, len(statuses)-1)],
			Token:  s.faker.UUID(),
			Source: s.faker.RandomString(sources),
		}
		now := time.Now()
		switch sub.Status {
		case models.SubscriberConfirmed:
			sub.ConfirmedAt = &now
		case models.SubscriberUnsubscribed:
			sub.UnsubscribedAt = &now
		}
		if err := s.db.Create(&sub).Error; err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Seeder) award(ctx context.Context, userID string, action gamification.Action, refID string) {
	if _, err := s.game.Award(ctx, userID, action, refID); err != nil {
		logger.Log.Warn("Seed award failed",
			logger.WithUserID(userID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *Seeder) publish(ctx context.Context, author models.User, activity *stream.Activity) {
	if err := s.feed.PublishSync(ctx, author.ID, activity); err != nil {
		logger.Log.Warn("Failed to publish seed activity", logger.WithUserID(author.ID), zap.Error(err))
	}
}

// pick returns n distinct entries of list
func (s *Seeder) pick(list []string, n int) []string {
	shuffled := append([]string(nil), list...)
	s.faker.ShuffleStrings(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func (s *Seeder) pickUsers(users []models.User, n int) []models.User {
	if n > len(users) {
		n = len(users)
	}
	idx := make([]int, len(users))
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleAnySlice(idx)
	out := make([]models.User, 0, n)
	for _, i := range idx[:n] {
		out = append(out, users[i])
	}
	return out
}
