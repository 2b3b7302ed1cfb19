package handlers

import (
	"net/http"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) requireGamification(c *gin.Context) bool {
	if h.gamification == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("gamification"))
		return false
	}
	return true
}

// PointsSummary returns the caller's points, level progress, rank and
// latest awards
// GET /api/v1/gamification/me
func (h *Handlers) PointsSummary(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok || !h.requireGamification(c) {
		return
	}
	summary, err := h.gamification.GetSummary(c.Request.Context(), user.ID)
	if util.HandleRepoError(c, err, "points") {
		return
	}
	c.JSON(http.StatusOK, summary)
}

// MyBadges lists the caller's earned badges
// GET /api/v1/gamification/me/badges
func (h *Handlers) MyBadges(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok || !h.requireGamification(c) {
		return
	}
	badges, err := h.gamification.UserBadges(c.Request.Context(), user.ID)
	if util.HandleRepoError(c, err, "badge") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": badges, "count": len(badges)})
}

// BadgeCatalog lists every badge and the point value of every action
// GET /api/v1/gamification/badges
func (h *Handlers) BadgeCatalog(c *gin.Context) {
	actions := []gamification.Action{
		gamification.ActionDailyLogin,
		gamification.ActionArticleRead,
		gamification.ActionArticleLike,
		gamification.ActionLessonComplete,
		gamification.ActionPathComplete,
		gamification.ActionForumPost,
		gamification.ActionForumReply,
		gamification.ActionReplyAccepted,
		gamification.ActionTemplateDownload,
		gamification.ActionProfileComplete,
		gamification.ActionNewsletterSubscribe,
	}
	points := make(map[string]int, len(actions))
	for _, a := range actions {
		points[string(a)] = gamification.PointsFor(a)
	}
	c.JSON(http.StatusOK, gin.H{"badges": gamification.Catalog(), "points": points})
}

// Leaderboard returns the top members by points
// GET /api/v1/gamification/leaderboard?limit=10
func (h *Handlers) Leaderboard(c *gin.Context) {
	if !h.requireGamification(c) {
		return
	}
	entries, err := h.gamification.Leaderboard(c.Request.Context(), util.ParseInt(c.Query("limit"), 10))
	if util.HandleRepoError(c, err, "leaderboard") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries, "count": len(entries)})
}

// CheckIn records today's visit and extends the streak
// POST /api/v1/gamification/checkin
func (h *Handlers) CheckIn(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok || !h.requireGamification(c) {
		return
	}
	result, err := h.gamification.CheckIn(c.Request.Context(), user.ID)
	if util.HandleRepoError(c, err, "check-in") {
		return
	}
	c.JSON(http.StatusOK, result)
}
