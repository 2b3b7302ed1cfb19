package config

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleOAuth builds the oauth2 config for Google sign-in.
// Returns an error when the client credentials or redirect base are missing.
func (c *Config) GoogleOAuth() (*oauth2.Config, error) {
	if c.Google.RedirectURL == "" {
		return nil, fmt.Errorf("OAUTH_REDIRECT_URL environment variable not set")
	}
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must both be set")
	}

	return &oauth2.Config{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL + "/api/v1/auth/google/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}, nil
}
