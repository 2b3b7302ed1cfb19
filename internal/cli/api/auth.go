// Package api wraps the ContentAnonymity REST endpoints contentctl uses.
package api

import (
	"github.com/contentanonymity/backend/internal/cli/client"
	"github.com/contentanonymity/backend/internal/cli/logger"
	json "github.com/json-iterator/go"
)

// TOTPField is the field a login error names when a TOTP code is needed
const TOTPField = "totp_code"

// Login exchanges email and password, plus a TOTP code when the account
// has one, for a token
func Login(req LoginRequest) (*AuthResponse, error) {
	logger.Debug("Attempting login", "email", req.Email)

	resp, err := client.GetClient().R().
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/v1/auth/login")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	logger.Debug("Login successful", "username", out.User.Username)
	return &out, nil
}

// NeedsTOTP reports whether a login failed only for want of a TOTP code
func NeedsTOTP(err error) bool {
	return client.IsUnauthorized(err) && client.FieldOf(err) == TOTPField
}

// Me returns the signed-in account
func Me() (*User, error) {
	resp, err := client.GetClient().R().Get("/api/v1/me")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var out struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
