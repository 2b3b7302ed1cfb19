package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/contentanonymity/backend/internal/auth"
	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const oauthStateCookie = "ca_oauth_state"

// authError maps auth service errors onto API errors
func authError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return apierrors.Conflict("email")
	case errors.Is(err, auth.ErrUsernameExists):
		return apierrors.Conflict("username")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierrors.Unauthorized("invalid email or password")
	case errors.Is(err, auth.ErrNoPassword):
		return apierrors.Unauthorized(auth.ErrNoPassword.Error())
	case errors.Is(err, auth.ErrTOTPRequired):
		return apierrors.TwoFactorRequired()
	case errors.Is(err, auth.ErrInvalidTOTP):
		return apierrors.ValidationError("totp_code", "invalid two-factor code")
	case errors.Is(err, auth.ErrInvalidResetToken):
		return apierrors.ValidationError("token", auth.ErrInvalidResetToken.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		return apierrors.Unauthorized("invalid token")
	case errors.Is(err, auth.ErrOAuthDisabled):
		return apierrors.ServiceUnavailable("google sign-in")
	}
	return apierrors.FromError(err, "account")
}

// Register creates an account with email and password
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if !util.IsValidUsername(req.Username) {
		util.RespondValidationError(c, "username", "username may only contain letters, numbers and underscores")
		return
	}

	resp, err := h.auth.RegisterNativeUser(c.Request.Context(), req)
	if err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}

	logger.Log.Info("User registered", logger.WithUserID(resp.User.ID), zap.String("username", resp.User.Username))
	c.JSON(http.StatusCreated, resp)
}

// Login exchanges email and password (plus a TOTP code when enabled) for a token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}

	resp, err := h.auth.LoginNativeUser(c.Request.Context(), req)
	if err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GoogleLogin returns the Google consent URL and sets the state cookie
// GET /api/v1/auth/google
func (h *Handlers) GoogleLogin(c *gin.Context) {
	state := uuid.New().String()
	url, err := h.auth.GoogleOAuthURL(state)
	if err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GoogleCallback finishes Google sign-in
// GET /api/v1/auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		util.RespondValidationError(c, "code", "authorization code is required")
		return
	}
	if cookie, err := c.Cookie(oauthStateCookie); err != nil || cookie == "" || cookie != c.Query("state") {
		util.RespondBadRequest(c, "invalid_state", "OAuth state mismatch")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	resp, err := h.auth.HandleGoogleCallback(c.Request.Context(), code)
	if err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ForgotPassword emails a reset link. The response never reveals whether
// the address has an account.
// POST /api/v1/auth/password/forgot
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	ctx := c.Request.Context()

	reset, user, err := h.auth.RequestPasswordReset(ctx, strings.ToLower(req.Email))
	if err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	if reset != nil {
		if err := h.email.SendPasswordResetEmail(ctx, user.Email, reset.Token); err != nil {
			logger.Log.Error("Failed to send password reset email", logger.WithUserID(user.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the address has an account, a reset link is on its way"})
}

// ResetPassword sets a new password from a reset token
// POST /api/v1/auth/password/reset
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// SetupTOTP starts two-factor enrollment and returns the secret
// POST /api/v1/auth/2fa/setup
func (h *Handlers) SetupTOTP(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if user.TOTPEnabled {
		util.RespondWithAPIError(c, apierrors.Conflict("two-factor").WithDetails("two-factor is already enabled"))
		return
	}
	setup, err := h.auth.SetupTOTP(c.Request.Context(), user)
	if err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, setup)
}

type totpCodeRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// EnableTOTP confirms a code from the pending secret and turns two-factor on
// POST /api/v1/auth/2fa/enable
func (h *Handlers) EnableTOTP(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		util.RespondBadRequest(c, "setup_required", "start two-factor setup first")
		return
	}
	if err := h.auth.EnableTOTP(c.Request.Context(), user, req.Code); err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	logger.Log.Info("Two-factor enabled", logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"totp_enabled": true})
}

// DisableTOTP turns two-factor off; a current code is required
// POST /api/v1/auth/2fa/disable
func (h *Handlers) DisableTOTP(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if err := h.auth.DisableTOTP(c.Request.Context(), user, req.Code); err != nil {
		util.RespondWithAPIError(c, authError(err))
		return
	}
	logger.Log.Info("Two-factor disabled", logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
}
