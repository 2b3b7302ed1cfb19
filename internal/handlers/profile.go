package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Me returns the signed-in member with their points summary
// GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	resp := gin.H{"user": user, "profile_complete": user.IsProfileComplete()}
	if h.gamification != nil {
		summary, err := h.gamification.GetSummary(c.Request.Context(), user.ID)
		if err != nil {
			logger.Log.Warn("Failed to load points summary", logger.WithUserID(user.ID), zap.Error(err))
		} else {
			resp["points"] = summary
		}
	}
	c.JSON(http.StatusOK, resp)
}

type profileRequest struct {
	Username       *string             `json:"username"`
	DisplayName    *string             `json:"display_name" binding:"omitempty,max=50"`
	Bio            *string             `json:"bio" binding:"omitempty,max=500"`
	AvatarURL      *string             `json:"avatar_url" binding:"omitempty,max=500"`
	NicheInterests []string            `json:"niche_interests"`
	SocialLinks    *models.SocialLinks `json:"social_links"`
}

// UpdateProfile applies a partial profile update. Filling in the profile
// for the first time pays the profile_complete award.
// PATCH /api/v1/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	ctx := c.Request.Context()

	columns := []string{}
	if req.Username != nil && *req.Username != user.Username {
		name := strings.TrimSpace(*req.Username)
		if !util.IsValidUsername(name) {
			util.RespondValidationError(c, "username", "username may only contain letters, numbers and underscores")
			return
		}
		existing, err := h.users.GetUserByUsername(ctx, name)
		if err == nil && existing.ID != user.ID {
			util.RespondWithAPIError(c, apierrors.Conflict("username"))
			return
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			util.RespondWithError(c, err, "user")
			return
		}
		user.Username = name
		columns = append(columns, "username")
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
		columns = append(columns, "display_name")
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
		columns = append(columns, "bio")
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
		columns = append(columns, "avatar_url")
	}
	if req.NicheInterests != nil {
		user.NicheInterests = models.NormalizeTags(req.NicheInterests)
		columns = append(columns, "niche_interests")
	}
	if req.SocialLinks != nil {
		user.SocialLinks = req.SocialLinks
		columns = append(columns, "social_links")
	}

	if len(columns) > 0 {
		if err := h.db.WithContext(ctx).Model(user).Select(columns).Updates(user).Error; err != nil {
			util.RespondWithError(c, err, "user")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             user,
		"profile_complete": user.IsProfileComplete(),
		"award":            h.profileAward(c, user),
	})
}

func (h *Handlers) profileAward(c *gin.Context, user *models.User) *gamification.AwardResult {
	if !user.IsProfileComplete() {
		return nil
	}
	return h.award(c.Request.Context(), user.ID, gamification.ActionProfileComplete, user.ID)
}

// UploadAvatar stores a profile picture and points the profile at it
// POST /api/v1/me/avatar
func (h *Handlers) UploadAvatar(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	result, ok := h.storeImage(c, "avatar", storage.PrefixAvatars)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	old := user.AvatarURL
	if err := h.users.UpdateFields(ctx, user.ID, map[string]interface{}{"avatar_url": result.URL}); err != nil {
		util.RespondWithError(c, err, "user")
		return
	}
	user.AvatarURL = result.URL

	if s3, ok := h.uploader.(*storage.S3Uploader); ok && old != "" {
		if key, owned := s3.KeyFromURL(old); owned {
			if err := s3.DeleteFile(ctx, key); err != nil {
				logger.Log.Warn("Failed to delete old avatar", logger.WithUserID(user.ID), zap.String("key", key), zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"avatar_url": result.URL,
		"award":      h.profileAward(c, user),
	})
}

// storeImage reads the multipart field and hands it to the uploader
func (h *Handlers) storeImage(c *gin.Context, field, prefix string) (*storage.UploadResult, bool) {
	if h.uploader == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("image storage"))
		return nil, false
	}
	file, err := c.FormFile(field)
	if err != nil {
		util.RespondBadRequest(c, "no_file", "no image provided in '"+field+"' field")
		return nil, false
	}
	if !util.IsValidImageFile(file.Filename) {
		util.RespondWithAPIError(c, apierrors.UnsupportedMedia("only .jpg, .png, .gif and .webp images are supported"))
		return nil, false
	}
	data, err := util.ReadUploadedFile(file, storage.DefaultMaxImageBytes)
	if errors.Is(err, util.ErrFileTooLarge) {
		util.RespondWithAPIError(c, apierrors.PayloadTooLarge("5MB"))
		return nil, false
	} else if err != nil {
		util.RespondBadRequest(c, "invalid_file", err.Error())
		return nil, false
	}

	result, err := h.uploader.UploadImage(c.Request.Context(), bytes.NewReader(data), file.Filename, prefix)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		util.RespondWithAPIError(c, apierrors.UnsupportedMedia(err.Error()))
		return nil, false
	case errors.Is(err, storage.ErrTooLarge):
		util.RespondWithAPIError(c, apierrors.PayloadTooLarge("5MB"))
		return nil, false
	case errors.Is(err, storage.ErrEmptyFile):
		util.RespondValidationError(c, field, "file is empty")
		return nil, false
	case err != nil:
		util.RespondWithAPIError(c, apierrors.InternalError("failed to store image").WithDetails(err.Error()))
		return nil, false
	}
	return result, true
}

// PublicProfile shows a member's public profile with earned badges
// GET /api/v1/users/:username
func (h *Handlers) PublicProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if util.HandleRepoError(c, err, "user") {
		return
	}

	profile := user.Public()
	if err := h.db.WithContext(ctx).Where("user_id = ?", user.ID).Order("awarded_at").Find(&profile.Badges).Error; err != nil {
		util.RespondWithError(c, err, "user")
		return
	}

	posts, err := h.forum.CountPostsByAuthor(ctx, user.ID)
	if err != nil {
		util.RespondWithError(c, err, "user")
		return
	}
	lessons, err := h.learning.CountCompletedLessons(ctx, user.ID)
	if err != nil {
		util.RespondWithError(c, err, "user")
		return
	}

	resp := gin.H{
		"profile": profile,
		"stats": gin.H{
			"forum_posts":       posts,
			"lessons_completed": lessons,
		},
	}
	if h.gamification != nil {
		badges, err := h.gamification.UserBadges(ctx, user.ID)
		if err == nil {
			resp["badges"] = badges
		}
		if rank, err := h.gamification.Rank(ctx, user); err == nil {
			resp["rank"] = rank
		}
	}
	c.JSON(http.StatusOK, resp)
}
