// Package credentials stores the contentctl login token on disk.
package credentials

import (
	"os"
	"time"

	"github.com/contentanonymity/backend/internal/cli/config"
	json "github.com/json-iterator/go"
)

type Credentials struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// Load reads the saved login. A missing file is not an error.
func Load() (*Credentials, error) {
	data, err := os.ReadFile(config.GetCredentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Save writes the login, readable by the owner only
func Save(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(config.GetCredentialsPath(), data, 0600)
}

// Delete removes the saved login
func Delete() error {
	err := os.Remove(config.GetCredentialsPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsExpired reports whether the token has passed its expiry
func (c *Credentials) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// IsValid reports whether the token can still be sent
func (c *Credentials) IsValid() bool {
	return c.Token != "" && !c.IsExpired()
}

// IsAdmin reports whether the saved user has the admin role
func (c *Credentials) IsAdmin() bool {
	return c.Role == "admin"
}
