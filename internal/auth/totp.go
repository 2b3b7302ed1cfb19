package auth

import (
	"context"
	"fmt"

	"github.com/contentanonymity/backend/internal/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPSetup is returned when a user starts two-factor enrollment
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// SetupTOTP generates and stores a new secret. It stays inactive until
// EnableTOTP confirms a code from it.
func (s *Service) SetupTOTP(ctx context.Context, user *models.User) (*TOTPSetup, error) {
	if user.TOTPEnabled {
		return nil, fmt.Errorf("two-factor already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "ContentAnonymity",
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	secret := key.Secret()
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"totp_secret": secret}); err != nil {
		return nil, err
	}
	user.TOTPSecret = &secret

	return &TOTPSetup{Secret: secret, URL: key.URL()}, nil
}

// EnableTOTP turns two-factor on after verifying a code from the pending secret
func (s *Service) EnableTOTP(ctx context.Context, user *models.User, code string) error {
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return fmt.Errorf("two-factor setup not started")
	}
	if !s.validateTOTP(user, code) {
		return ErrInvalidTOTP
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"totp_enabled": true}); err != nil {
		return err
	}
	user.TOTPEnabled = true
	return nil
}

// DisableTOTP turns two-factor off; a current code is required
func (s *Service) DisableTOTP(ctx context.Context, user *models.User, code string) error {
	if !user.TOTPEnabled {
		return nil
	}
	if !s.validateTOTP(user, code) {
		return ErrInvalidTOTP
	}
	err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{
		"totp_enabled": false,
		"totp_secret":  nil,
	})
	if err != nil {
		return err
	}
	user.TOTPEnabled = false
	user.TOTPSecret = nil
	return nil
}

func (s *Service) validateTOTP(user *models.User, code string) bool {
	if user.TOTPSecret == nil {
		return false
	}
	valid, err := totp.ValidateCustom(code, *user.TOTPSecret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
