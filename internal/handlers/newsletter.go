package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSubscriberToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Subscribe starts a double opt-in subscription. Subscribing again while
// pending resends the confirmation; an unsubscribed address starts over.
// POST /api/v1/newsletter/subscribe
func (h *Handlers) Subscribe(c *gin.Context) {
	var req struct {
		Email  string `json:"email" binding:"required"`
		Source string `json:"source" binding:"max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	addr := util.NormalizeEmail(req.Email)
	if addr == "" {
		util.RespondValidationError(c, "email", "a valid email address is required")
		return
	}
	ctx := c.Request.Context()

	var sub models.Subscriber
	err := h.db.WithContext(ctx).Where("email = ?", addr).First(&sub).Error
	switch {
	case err == nil && sub.Status == models.SubscriberConfirmed:
		c.JSON(http.StatusOK, gin.H{"status": sub.Status, "already_subscribed": true})
		return
	case err == nil:
		if sub.Status == models.SubscriberUnsubscribed {
			token, err := newSubscriberToken()
			if err != nil {
				util.RespondInternalError(c, "failed to create subscription")
				return
			}
			sub.Token = token
			sub.Status = models.SubscriberPending
			sub.UnsubscribedAt = nil
			sub.ConfirmedAt = nil
		}
		if req.Source != "" {
			sub.Source = strings.TrimSpace(req.Source)
		}
		if err := h.db.WithContext(ctx).Save(&sub).Error; err != nil {
			util.RespondWithError(c, err, "subscription")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		token, err := newSubscriberToken()
		if err != nil {
			util.RespondInternalError(c, "failed to create subscription")
			return
		}
		sub = models.Subscriber{
			Email:  addr,
			Status: models.SubscriberPending,
			Token:  token,
			Source: strings.TrimSpace(req.Source),
		}
		if err := h.db.WithContext(ctx).Create(&sub).Error; err != nil {
			util.RespondWithError(c, err, "subscription")
			return
		}
	default:
		util.RespondWithError(c, err, "subscription")
		return
	}

	if err := h.email.SendNewsletterConfirmation(ctx, sub.Email, sub.Token, sub.Token); err != nil {
		logger.Log.Error("Failed to send newsletter confirmation", zap.String("subscriber_id", sub.ID), zap.Error(err))
	}
	c.JSON(http.StatusAccepted, gin.H{"status": sub.Status, "already_subscribed": false})
}

func (h *Handlers) subscriberByToken(c *gin.Context) (*models.Subscriber, bool) {
	token := c.Query("token")
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		_ = c.ShouldBindJSON(&body)
		token = body.Token
	}
	if token == "" {
		util.RespondValidationError(c, "token", "token is required")
		return nil, false
	}

	var sub models.Subscriber
	err := h.db.WithContext(c.Request.Context()).Where("token = ?", token).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondWithAPIError(c, apierrors.NotFound("subscription"))
		return nil, false
	} else if err != nil {
		util.RespondWithError(c, err, "subscription")
		return nil, false
	}
	return &sub, true
}

// ConfirmSubscription confirms a pending subscription. A confirmed address
// that belongs to a member earns the newsletter_subscribe award.
// POST /api/v1/newsletter/confirm?token=
func (h *Handlers) ConfirmSubscription(c *gin.Context) {
	sub, ok := h.subscriberByToken(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if sub.Status == models.SubscriberUnsubscribed {
		util.RespondWithAPIError(c, apierrors.Conflict("subscription").WithDetails("subscription was cancelled, subscribe again"))
		return
	}
	if sub.Status == models.SubscriberPending {
		now := h.now()
		sub.Status = models.SubscriberConfirmed
		sub.ConfirmedAt = &now
		if err := h.db.WithContext(ctx).Save(sub).Error; err != nil {
			util.RespondWithError(c, err, "subscription")
			return
		}
		logger.Log.Info("Newsletter subscription confirmed", zap.String("subscriber_id", sub.ID))
	}

	resp := gin.H{"status": sub.Status}
	user, err := h.users.GetUserByEmail(ctx, sub.Email)
	if err == nil {
		resp["award"] = h.award(ctx, user.ID, gamification.ActionNewsletterSubscribe, sub.ID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.Log.Warn("Failed to look up subscriber account", zap.String("subscriber_id", sub.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, resp)
}

// Unsubscribe cancels a subscription; repeating it is a no-op
// POST /api/v1/newsletter/unsubscribe?token=
func (h *Handlers) Unsubscribe(c *gin.Context) {
	sub, ok := h.subscriberByToken(c)
	if !ok {
		return
	}
	if sub.Status != models.SubscriberUnsubscribed {
		now := h.now()
		sub.Status = models.SubscriberUnsubscribed
		sub.UnsubscribedAt = &now
		if err := h.db.WithContext(c.Request.Context()).Save(sub).Error; err != nil {
			util.RespondWithError(c, err, "subscription")
			return
		}
		logger.Log.Info("Newsletter unsubscribed", zap.String("subscriber_id", sub.ID))
	}
	c.JSON(http.StatusOK, gin.H{"status": sub.Status})
}
