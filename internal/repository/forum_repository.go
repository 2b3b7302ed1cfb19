package repository

import (
	"context"
	"errors"
	"time"

	"github.com/contentanonymity/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Forum sort orders
const (
	ForumSortLatest = "latest"
	ForumSortTop    = "top"
	ForumSortActive = "active"
)

// ForumListOptions filters a forum listing. Pinned posts always come first.
type ForumListOptions struct {
	Category string
	Tag      string
	AuthorID string
	Query    string // substring of the title
	Sort     string
	Limit    int
	Offset   int
}

// ForumRepository handles posts, replies and votes
type ForumRepository interface {
	ListPosts(ctx context.Context, opts ForumListOptions) ([]models.ForumPost, int64, error)
	GetPost(ctx context.Context, idOrSlug string) (*models.ForumPost, error)
	GetPostWithReplies(ctx context.Context, idOrSlug string) (*models.ForumPost, error)
	CreatePost(ctx context.Context, post *models.ForumPost) error
	SavePost(ctx context.Context, post *models.ForumPost) error
	DeletePost(ctx context.Context, postID string) error
	IncrementViews(ctx context.Context, postID string) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	GetReply(ctx context.Context, replyID string) (*models.ForumReply, error)
	CreateReply(ctx context.Context, reply *models.ForumReply) error
	DeleteReply(ctx context.Context, reply *models.ForumReply) error
	AcceptReply(ctx context.Context, post *models.ForumPost, reply *models.ForumReply) error

	// Vote returns true when a new vote was recorded
	Vote(ctx context.Context, userID string, target models.VoteTarget, targetID string) (bool, error)
	// Unvote returns true when an existing vote was removed
	Unvote(ctx context.Context, userID string, target models.VoteTarget, targetID string) (bool, error)

	CountPostsByAuthor(ctx context.Context, authorID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	Each(ctx context.Context, batchSize int, fn func([]models.ForumPost) error) error
}

type forumRepository struct {
	db *gorm.DB
}

func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) ListPosts(ctx context.Context, opts ForumListOptions) ([]models.ForumPost, int64, error) {
	lo := ListOptions{Limit: opts.Limit, Offset: opts.Offset}
	lo.Normalize()

	q := r.db.WithContext(ctx).Model(&models.ForumPost{})
	if opts.Category != "" {
		q = q.Where("category = ?", opts.Category)
	}
	if opts.Tag != "" {
		q = whereTag(q, "tags", opts.Tag)
	}
	if opts.AuthorID != "" {
		q = q.Where("author_id = ?", opts.AuthorID)
	}
	if opts.Query != "" {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(opts.Query))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("pinned DESC")
	switch opts.Sort {
	case ForumSortTop:
		q = q.Order("upvote_count DESC").Order("created_at DESC")
	case ForumSortActive:
		q = q.Order("last_activity_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var posts []models.ForumPost
	err := q.Order("id").
		Preload("Author").
		Limit(lo.Limit).
		Offset(lo.Offset).
		Find(&posts).Error
	return posts, total, err
}

func (r *forumRepository) GetPost(ctx context.Context, idOrSlug string) (*models.ForumPost, error) {
	var post models.ForumPost
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// GetPostWithReplies loads replies oldest first
func (r *forumRepository) GetPostWithReplies(ctx context.Context, idOrSlug string) (*models.ForumPost, error) {
	var post models.ForumPost
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id")
		}).
		Preload("Replies.Author").
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	if post.Replies == nil {
		post.Replies = []models.ForumReply{}
	}
	return &post, nil
}

func (r *forumRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	if post.LastActivityAt.IsZero() {
		post.LastActivityAt = time.Now().UTC()
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error)
}

func (r *forumRepository) SavePost(ctx context.Context, post *models.ForumPost) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error)
}

// DeletePost soft deletes the post and its replies
func (r *forumRepository) DeletePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", postID).Delete(&models.ForumPost{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("post_id = ?", postID).Delete(&models.ForumReply{}).Error
	})
}

func (r *forumRepository) IncrementViews(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Model(&models.ForumPost{}).
		Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *forumRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.ForumPost{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *forumRepository) GetReply(ctx context.Context, replyID string) (*models.ForumReply, error) {
	var reply models.ForumReply
	if err := r.db.WithContext(ctx).Where("id = ?", replyID).First(&reply).Error; err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

// CreateReply stores the reply and bumps the post's counters in one transaction
func (r *forumRepository) CreateReply(ctx context.Context, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(reply).Error; err != nil {
			return translate(err)
		}
		return tx.Model(&models.ForumPost{}).
			Where("id = ?", reply.PostID).
			UpdateColumns(map[string]interface{}{
				"reply_count":      gorm.Expr("reply_count + 1"),
				"last_activity_at": time.Now().UTC(),
			}).Error
	})
}

func (r *forumRepository) DeleteReply(ctx context.Context, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(reply).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"reply_count": gorm.Expr("CASE WHEN reply_count > 0 THEN reply_count - 1 ELSE 0 END")}
		if reply.Accepted {
			updates["accepted_reply_id"] = nil
		}
		return tx.Model(&models.ForumPost{}).Where("id = ?", reply.PostID).UpdateColumns(updates).Error
	})
}

// AcceptReply marks reply as the single accepted answer of post
func (r *forumRepository) AcceptReply(ctx context.Context, post *models.ForumPost, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ForumReply{}).
			Where("post_id = ? AND accepted = ?", post.ID, true).
			UpdateColumn("accepted", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ForumReply{}).
			Where("id = ?", reply.ID).
			UpdateColumn("accepted", true).Error; err != nil {
			return err
		}
		reply.Accepted = true
		post.AcceptedReplyID = &reply.ID
		return tx.Model(&models.ForumPost{}).
			Where("id = ?", post.ID).
			UpdateColumn("accepted_reply_id", reply.ID).Error
	})
}

func voteTable(target models.VoteTarget) (interface{}, bool) {
	switch target {
	case models.VoteTargetPost:
		return &models.ForumPost{}, true
	case models.VoteTargetReply:
		return &models.ForumReply{}, true
	}
	return nil, false
}

func (r *forumRepository) Vote(ctx context.Context, userID string, target models.VoteTarget, targetID string) (bool, error) {
	table, ok := voteTable(target)
	if !ok {
		return false, ErrInvalidInput
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ForumVote
		err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		vote := models.ForumVote{UserID: userID, TargetType: target, TargetID: targetID}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}
		created = true
		return tx.Model(table).Where("id = ?", targetID).
			UpdateColumn("upvote_count", gorm.Expr("upvote_count + 1")).Error
	})
	return created, err
}

func (r *forumRepository) Unvote(ctx context.Context, userID string, target models.VoteTarget, targetID string) (bool, error) {
	table, ok := voteTable(target)
	if !ok {
		return false, ErrInvalidInput
	}

	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
			Delete(&models.ForumVote{})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		removed = true
		return tx.Model(table).Where("id = ? AND upvote_count > 0", targetID).
			UpdateColumn("upvote_count", gorm.Expr("upvote_count - 1")).Error
	})
	return removed, err
}

func (r *forumRepository) CountPostsByAuthor(ctx context.Context, authorID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ForumPost{}).Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}

func (r *forumRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ForumPost{}).Count(&n).Error
	return n, err
}

func (r *forumRepository) Each(ctx context.Context, batchSize int, fn func([]models.ForumPost) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var batch []models.ForumPost
	return r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
