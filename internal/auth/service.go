package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPassword         = errors.New("account has no password, sign in with Google")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrTOTPRequired       = errors.New("two-factor code required")
	ErrInvalidTOTP        = errors.New("invalid two-factor code")
	ErrOAuthDisabled      = errors.New("google sign-in is not configured")
)

const (
	DefaultTokenTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour
)

// Claims is the JWT payload issued on login
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Options configures a Service
type Options struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	Issuer    string
	// Google is nil when Google sign-in is not configured
	Google *oauth2.Config
}

// Service handles all authentication operations
type Service struct {
	db        *gorm.DB
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	issuer    string
	google    *oauth2.Config

	googleUserInfoURL string
	now               func() time.Time
}

// NewService creates a new authentication service
func NewService(db *gorm.DB, users repository.UserRepository, opts Options) *Service {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = "contentanonymity"
	}
	return &Service{
		db:                db,
		users:             users,
		jwtSecret:         opts.JWTSecret,
		tokenTTL:          ttl,
		issuer:            issuer,
		google:            opts.Google,
		googleUserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		now:               time.Now,
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// RegisterRequest represents native registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"max=50"`
}

// LoginRequest represents native login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code"`
}

// RegisterNativeUser creates a new user with email/password
func (s *Service) RegisterNativeUser(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Google-only accounts add a password through the reset email, never here
	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}
	user := &models.User{
		Email:        email,
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: &hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return s.GenerateToken(user)
}

// LoginNativeUser authenticates with email/password. Accounts with TOTP
// enabled must also pass a current code.
func (s *Service) LoginNativeUser(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		if !s.validateTOTP(user, req.TOTPCode) {
			return nil, ErrInvalidTOTP
		}
	}

	now := s.now()
	user.LastActiveAt = &now
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"last_active_at": now}); err != nil {
		logger.Log.Warn("Failed to record last active time", logger.WithUserID(user.ID), zap.Error(err))
	}

	return s.GenerateToken(user)
}

// GenerateToken signs an HS256 token for the user
func (s *Service) GenerateToken(user *models.User) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		User:      user,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken verifies the signature and expiry and returns the claims
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken parses the token and loads the current user record, so role
// changes take effect without a new login
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset creates a reset token. It returns (nil, nil, nil) for
// unknown addresses so callers cannot tell whether an email exists. Accounts
// without a password get a token too; that is how a Google-only member sets one.
// Only a SHA-256 of the token is stored; the raw value is on the returned Token.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*models.PasswordReset, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("lookup email: %w", err)
	}
	token, err := randomToken(32)
	if err != nil {
		return nil, nil, err
	}
	reset := &models.PasswordReset{
		UserID:    user.ID,
		Token:     token,
		TokenHash: hashResetToken(token),
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(reset).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create reset token: %w", err)
	}
	return reset, user, nil
}

// ResetPassword validates the reset token and updates the user's password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", repository.ErrInvalidInput)
	}

	var reset models.PasswordReset
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashResetToken(token)).First(&reset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidResetToken
	} else if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if !reset.Valid(s.now()) {
		return ErrInvalidResetToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PasswordReset{}).
			Where("id = ? AND used = ?", reset.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}
		return tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password_hash", hash).Error
	})
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
