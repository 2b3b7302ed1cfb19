package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GoogleUserInfo represents Google OAuth user response
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuthURL returns the Google consent URL for state
func (s *Service) GoogleOAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrOAuthDisabled
	}
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// HandleGoogleCallback exchanges the code and signs the user in, linking by
// email to an existing account or creating a new one
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrOAuthDisabled
	}

	info, err := s.fetchGoogleUser(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}
	return s.findOrCreateGoogleUser(ctx, info)
}

func (s *Service) fetchGoogleUser(ctx context.Context, code string) (*GoogleUserInfo, error) {
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := s.google.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, errors.New("userinfo missing id or email")
	}
	return &info, nil
}

func (s *Service) findOrCreateGoogleUser(ctx context.Context, info *GoogleUserInfo) (*AuthResponse, error) {
	user, err := s.users.GetUserByGoogleID(ctx, info.ID)
	if err == nil {
		return s.GenerateToken(user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup google id: %w", err)
	}

	user, err = s.users.GetUserByEmail(ctx, info.Email)
	switch {
	case err == nil:
		googleID := info.ID
		fields := map[string]interface{}{"google_id": googleID}
		if user.AvatarURL == "" && info.Picture != "" {
			fields["avatar_url"] = info.Picture
			user.AvatarURL = info.Picture
		}
		if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		user.GoogleID = &googleID
		logger.Log.Info("Linked Google account", logger.WithUserID(user.ID))
		return s.GenerateToken(user)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	username, err := s.ensureUniqueUsername(ctx, usernameFromGoogle(info))
	if err != nil {
		return nil, err
	}
	googleID := info.ID
	displayName := info.Name
	if displayName == "" {
		displayName = username
	}
	user = &models.User{
		Email:       strings.ToLower(info.Email),
		Username:    username,
		DisplayName: displayName,
		AvatarURL:   info.Picture,
		GoogleID:    &googleID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Log.Info("User registered via Google", logger.WithUserID(user.ID), zap.String("username", username))
	return s.GenerateToken(user)
}

// ensureUniqueUsername suffixes base with _2, _3, ... until it is free
func (s *Service) ensureUniqueUsername(ctx context.Context, base string) (string, error) {
	candidate, err := util.UniqueSlug(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
		_, err := s.users.GetUserByUsername(ctx, usernameForm(candidate))
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return "", err
	}
	return usernameForm(candidate), nil
}

func usernameForm(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

// usernameFromGoogle derives a username from the display name or the email
// local part, keeping only characters usernames allow
func usernameFromGoogle(info *GoogleUserInfo) string {
	source := info.Name
	if source == "" {
		source, _, _ = strings.Cut(info.Email, "@")
	}
	name := usernameForm(util.Slugify(source))
	if len(name) > 24 {
		name = name[:24]
	}
	if len(name) < 3 {
		name = "creator"
	}
	return name
}
