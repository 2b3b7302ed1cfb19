package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/contentanonymity/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const excerptLength = 160

// ListForumPosts lists threads, pinned first
// GET /api/v1/forum/posts
func (h *Handlers) ListForumPosts(c *gin.Context) {
	limit, offset := util.PageParams(c)
	opts := repository.ForumListOptions{
		Tag:    strings.TrimSpace(c.Query("tag")),
		Query:  strings.TrimSpace(c.Query("q")),
		Sort:   c.DefaultQuery("sort", repository.ForumSortLatest),
		Limit:  limit,
		Offset: offset,
	}
	if cat := strings.ToLower(strings.TrimSpace(c.Query("category"))); cat != "" {
		if !models.ForumCategory(cat).Valid() {
			util.RespondValidationError(c, "category", "unknown category "+cat)
			return
		}
		opts.Category = cat
	}
	if username := strings.TrimSpace(c.Query("author")); username != "" {
		author, err := h.users.GetUserByUsername(c.Request.Context(), username)
		if util.HandleRepoError(c, err, "user") {
			return
		}
		opts.AuthorID = author.ID
	}

	posts, total, err := h.forum.ListPosts(c.Request.Context(), opts)
	if util.HandleRepoError(c, err, "post") {
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(posts, total, limit, offset))
}

// GetForumPost returns a thread with its replies, oldest first, and counts the view
// GET /api/v1/forum/posts/:id
func (h *Handlers) GetForumPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.forum.GetPostWithReplies(ctx, c.Param("id"))
	if util.HandleRepoError(c, err, "post") {
		return
	}

	if err := h.forum.IncrementViews(ctx, post.ID); err != nil {
		logger.Log.Warn("Failed to count post view", logger.WithContentID("post", post.ID), zap.Error(err))
	} else {
		post.ViewCount++
		metrics.Get().ContentViewsTotal.WithLabelValues(string(models.KindForumPost)).Inc()
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

type forumPostRequest struct {
	Title    *string  `json:"title" binding:"omitempty,min=3,max=200"`
	Body     *string  `json:"body" binding:"omitempty,min=1,max=20000"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags" binding:"omitempty,max=10"`
}

func (r *forumPostRequest) apply(post *models.ForumPost) (field, message string) {
	setString(&post.Title, r.Title)
	if r.Body != nil {
		post.Body = strings.TrimSpace(*r.Body)
	}
	if r.Category != nil {
		cat := models.ForumCategory(strings.ToLower(strings.TrimSpace(*r.Category)))
		if !cat.Valid() {
			return "category", "unknown category " + string(cat)
		}
		post.Category = cat
	}
	setTags(&post.Tags, r.Tags)

	switch {
	case post.Title == "":
		return "title", "title is required"
	case post.Body == "":
		return "body", "body is required"
	}
	return "", ""
}

// CreateForumPost starts a thread
// POST /api/v1/forum/posts
func (h *Handlers) CreateForumPost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req forumPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}

	post := &models.ForumPost{AuthorID: user.ID, Category: models.ForumGeneral}
	if field, msg := req.apply(post); field != "" {
		util.RespondValidationError(c, field, msg)
		return
	}

	slug, err := util.UniqueSlug(ctx, util.Slugify(post.Title), func(ctx context.Context, s string) (bool, error) {
		return h.forum.SlugExists(ctx, s)
	})
	if err != nil {
		util.RespondWithError(c, err, "post")
		return
	}
	post.Slug = slug
	post.LastActivityAt = h.now().UTC()

	if err := h.forum.CreatePost(ctx, post); util.HandleRepoError(c, err, "post") {
		return
	}
	post.Author = user

	metrics.Get().ForumActivityTotal.WithLabelValues("post").Inc()
	h.Sync(ctx, search.ForumPostDoc(post))
	h.invalidate(ctx, cacheGroupForum)
	award := h.award(ctx, user.ID, gamification.ActionForumPost, post.ID)

	h.stream.Publish(user.ID, &stream.Activity{
		Actor:     "user:" + user.ID,
		Verb:      stream.VerbPosted,
		Object:    "forum_post:" + post.ID,
		ForeignID: "forum_post:" + post.ID,
		Title:     post.Title,
		URL:       "/community/" + post.Slug,
		Username:  user.Username,
		Extra:     map[string]interface{}{"category": string(post.Category)},
	})
	if h.wsHandler != nil {
		h.wsHandler.NotifyForumPost(websocket.ForumPostPayload{
			PostID:   post.ID,
			Slug:     post.Slug,
			Title:    post.Title,
			Category: string(post.Category),
			Tags:     post.Tags,
			AuthorID: user.ID,
			Username: user.Username,
		})
	}

	logger.Log.Info("Forum post created", logger.WithContentID("post", post.ID), logger.WithUserID(user.ID))
	c.JSON(http.StatusCreated, gin.H{"post": post, "award": award})
}

// loadOwnPost loads a post the caller may change: its author or an admin
func (h *Handlers) loadOwnPost(c *gin.Context) (*models.ForumPost, *models.User, bool) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return nil, nil, false
	}
	post, err := h.forum.GetPost(c.Request.Context(), c.Param("id"))
	if util.HandleRepoError(c, err, "post") {
		return nil, nil, false
	}
	if post.AuthorID != user.ID && user.Role != models.RoleAdmin {
		util.RespondForbidden(c, "only the author can change this post")
		return nil, nil, false
	}
	return post, user, true
}

// UpdateForumPost edits a thread
// PATCH /api/v1/forum/posts/:id
func (h *Handlers) UpdateForumPost(c *gin.Context) {
	post, _, ok := h.loadOwnPost(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req forumPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if field, msg := req.apply(post); field != "" {
		util.RespondValidationError(c, field, msg)
		return
	}

	if err := h.forum.SavePost(ctx, post); util.HandleRepoError(c, err, "post") {
		return
	}
	h.Sync(ctx, search.ForumPostDoc(post))
	h.invalidate(ctx, cacheGroupForum)
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// DeleteForumPost removes a thread and its replies
// DELETE /api/v1/forum/posts/:id
func (h *Handlers) DeleteForumPost(c *gin.Context) {
	post, user, ok := h.loadOwnPost(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.forum.DeletePost(ctx, post.ID); util.HandleRepoError(c, err, "post") {
		return
	}
	h.unindex(ctx, models.KindForumPost, post.ID)
	h.invalidate(ctx, cacheGroupForum)
	h.stream.Remove(post.AuthorID, "forum_post:"+post.ID)

	logger.Log.Info("Forum post deleted", logger.WithContentID("post", post.ID), logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": post.ID})
}

// ModeratePost pins or locks a thread
// PUT /api/v1/forum/posts/:id/moderation
func (h *Handlers) ModeratePost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.forum.GetPost(ctx, c.Param("id"))
	if util.HandleRepoError(c, err, "post") {
		return
	}

	var req struct {
		Pinned *bool `json:"pinned"`
		Locked *bool `json:"locked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	setBool(&post.Pinned, req.Pinned)
	setBool(&post.Locked, req.Locked)

	if err := h.forum.SavePost(ctx, post); util.HandleRepoError(c, err, "post") {
		return
	}
	h.invalidate(ctx, cacheGroupForum)
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// CreateReply answers a thread. Locked threads take no replies.
// POST /api/v1/forum/posts/:id/replies
func (h *Handlers) CreateReply(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	post, err := h.forum.GetPost(ctx, c.Param("id"))
	if util.HandleRepoError(c, err, "post") {
		return
	}
	if post.Locked {
		util.RespondForbidden(c, "this thread is locked")
		return
	}

	var req struct {
		Body string `json:"body" binding:"required,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		util.RespondValidationError(c, "body", "body is required")
		return
	}

	reply := &models.ForumReply{PostID: post.ID, AuthorID: user.ID, Body: body}
	if err := h.forum.CreateReply(ctx, reply); util.HandleRepoError(c, err, "reply") {
		return
	}
	reply.Author = user

	metrics.Get().ForumActivityTotal.WithLabelValues("reply").Inc()
	h.invalidate(ctx, cacheGroupForum)
	award := h.award(ctx, user.ID, gamification.ActionForumReply, reply.ID)

	h.stream.Publish(user.ID, &stream.Activity{
		Actor:     "user:" + user.ID,
		Verb:      stream.VerbReplied,
		Object:    "forum_post:" + post.ID,
		ForeignID: "forum_reply:" + reply.ID,
		Title:     post.Title,
		URL:       "/community/" + post.Slug,
		Username:  user.Username,
	})
	if h.wsHandler != nil {
		h.wsHandler.NotifyReply(websocket.ForumReplyPayload{
			PostID:     post.ID,
			ReplyID:    reply.ID,
			AuthorID:   user.ID,
			Username:   user.Username,
			Excerpt:    excerpt(body, excerptLength),
			ReplyCount: post.ReplyCount + 1,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"reply": reply, "award": award})
}

// DeleteReply removes a reply; its author or an admin may do this
// DELETE /api/v1/forum/replies/:id
func (h *Handlers) DeleteReply(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	reply, err := h.forum.GetReply(ctx, c.Param("id"))
	if util.HandleRepoError(c, err, "reply") {
		return
	}
	if reply.AuthorID != user.ID && user.Role != models.RoleAdmin {
		util.RespondForbidden(c, "only the author can delete this reply")
		return
	}

	if err := h.forum.DeleteReply(ctx, reply); util.HandleRepoError(c, err, "reply") {
		return
	}
	h.invalidate(ctx, cacheGroupForum)
	h.stream.Remove(reply.AuthorID, "forum_reply:"+reply.ID)
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": reply.ID})
}

// AcceptReply marks the answer to a thread. Only the thread author may
// accept; accepting someone else's reply pays them reply_accepted.
// POST /api/v1/forum/replies/:id/accept
func (h *Handlers) AcceptReply(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	reply, err := h.forum.GetReply(ctx, c.Param("id"))
	if util.HandleRepoError(c, err, "reply") {
		return
	}
	post, err := h.forum.GetPost(ctx, reply.PostID)
	if util.HandleRepoError(c, err, "post") {
		return
	}
	if post.AuthorID != user.ID {
		util.RespondForbidden(c, "only the thread author can accept an answer")
		return
	}

	if err := h.forum.AcceptReply(ctx, post, reply); util.HandleRepoError(c, err, "reply") {
		return
	}
	metrics.Get().ForumActivityTotal.WithLabelValues("accept").Inc()
	h.invalidate(ctx, cacheGroupForum)

	var award *gamification.AwardResult
	if reply.AuthorID != user.ID {
		award = h.award(ctx, reply.AuthorID, gamification.ActionReplyAccepted, reply.ID)
		h.stream.Publish(user.ID, &stream.Activity{
			Actor:     "user:" + user.ID,
			Verb:      stream.VerbAnswerPick,
			Object:    "forum_reply:" + reply.ID,
			ForeignID: "forum_accept:" + reply.ID,
			Title:     post.Title,
			URL:       "/community/" + post.Slug,
			Username:  user.Username,
		})
	}
	if h.wsHandler != nil {
		h.wsHandler.NotifyAccepted(websocket.ForumReplyPayload{
			PostID:     post.ID,
			ReplyID:    reply.ID,
			AuthorID:   reply.AuthorID,
			Excerpt:    excerpt(reply.Body, excerptLength),
			ReplyCount: post.ReplyCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"post_id": post.ID, "accepted_reply_id": reply.ID, "award": award})
}

// VotePost upvotes a thread; voting twice is a no-op
// POST /api/v1/forum/posts/:id/vote
func (h *Handlers) VotePost(c *gin.Context) {
	h.vote(c, models.VoteTargetPost, true)
}

// UnvotePost removes the caller's upvote
// DELETE /api/v1/forum/posts/:id/vote
func (h *Handlers) UnvotePost(c *gin.Context) {
	h.vote(c, models.VoteTargetPost, false)
}

// VoteReply upvotes a reply
// POST /api/v1/forum/replies/:id/vote
func (h *Handlers) VoteReply(c *gin.Context) {
	h.vote(c, models.VoteTargetReply, true)
}

// UnvoteReply removes the caller's upvote from a reply
// DELETE /api/v1/forum/replies/:id/vote
func (h *Handlers) UnvoteReply(c *gin.Context) {
	h.vote(c, models.VoteTargetReply, false)
}

func (h *Handlers) vote(c *gin.Context, target models.VoteTarget, up bool) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// resolve the target first so votes on missing rows are 404s
	var postID, targetID string
	switch target {
	case models.VoteTargetPost:
		post, err := h.forum.GetPost(ctx, c.Param("id"))
		if util.HandleRepoError(c, err, "post") {
			return
		}
		postID, targetID = post.ID, post.ID
	default:
		reply, err := h.forum.GetReply(ctx, c.Param("id"))
		if util.HandleRepoError(c, err, "reply") {
			return
		}
		postID, targetID = reply.PostID, reply.ID
	}

	var changed bool
	var err error
	if up {
		changed, err = h.forum.Vote(ctx, user.ID, target, targetID)
	} else {
		changed, err = h.forum.Unvote(ctx, user.ID, target, targetID)
	}
	if util.HandleRepoError(c, err, "vote") {
		return
	}

	count, err := h.upvoteCount(ctx, target, targetID)
	if util.HandleRepoError(c, err, "vote") {
		return
	}
	if changed {
		metrics.Get().ForumActivityTotal.WithLabelValues("vote").Inc()
		if h.wsHandler != nil {
			h.wsHandler.NotifyVoteCount(websocket.VoteCountPayload{
				TargetType: string(target),
				TargetID:   targetID,
				PostID:     postID,
				Count:      count,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"target_type":  target,
		"target_id":    targetID,
		"voted":        up,
		"changed":      changed,
		"upvote_count": count,
	})
}

func (h *Handlers) upvoteCount(ctx context.Context, target models.VoteTarget, id string) (int, error) {
	if target == models.VoteTargetPost {
		post, err := h.forum.GetPost(ctx, id)
		if err != nil {
			return 0, err
		}
		return post.UpvoteCount, nil
	}
	reply, err := h.forum.GetReply(ctx, id)
	if err != nil {
		return 0, err
	}
	return reply.UpvoteCount, nil
}

// excerpt shortens s to at most n runes on a word boundary
func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
