package models

import (
	"time"
)

type Role string

const (
	RoleMember Role = "member"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// CanEdit reports whether the role may create and modify catalog content
func (r Role) CanEdit() bool {
	return r == RoleEditor || r == RoleAdmin
}

// SocialLinks stores user's external profile links
type SocialLinks struct {
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Website   string `json:"website,omitempty"`
}

// User is a community member account and its public profile
type User struct {
	Model
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url"`

	NicheInterests StringArray  `gorm:"type:text" json:"niche_interests"`
	SocialLinks    *SocialLinks `gorm:"type:text;serializer:json" json:"social_links"`

	Role Role `gorm:"type:varchar(16);not null;default:member;index" json:"role"`

	// Auth
	PasswordHash *string `gorm:"type:text" json:"-"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`
	TOTPSecret   *string `gorm:"type:text" json:"-"`
	TOTPEnabled  bool    `gorm:"default:false" json:"totp_enabled"`

	// Gamification
	Points         int        `gorm:"not null;default:0;index" json:"points"`
	Level          int        `gorm:"not null;default:1" json:"level"`
	StreakDays     int        `gorm:"not null;default:0" json:"streak_days"`
	LastActiveDate string     `gorm:"type:varchar(10)" json:"last_active_date,omitempty"` // YYYY-MM-DD, UTC
	LastActiveAt   *time.Time `json:"last_active_at,omitempty"`
}

// IsProfileComplete is true once the fields the profile_complete award asks for are filled in
func (u *User) IsProfileComplete() bool {
	return u.DisplayName != "" && u.Bio != "" && u.AvatarURL != "" && len(u.NicheInterests) > 0
}

// PublicProfile is the subset of User shown to other members
type PublicProfile struct {
	ID             string       `json:"id"`
	Username       string       `json:"username"`
	DisplayName    string       `json:"display_name"`
	Bio            string       `json:"bio"`
	AvatarURL      string       `json:"avatar_url"`
	NicheInterests StringArray  `json:"niche_interests"`
	SocialLinks    *SocialLinks `json:"social_links,omitempty"`
	Points         int          `json:"points"`
	Level          int          `json:"level"`
	StreakDays     int          `json:"streak_days"`
	Badges         []UserBadge  `json:"badges"`
	JoinedAt       time.Time    `json:"joined_at"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		AvatarURL:      u.AvatarURL,
		NicheInterests: u.NicheInterests,
		SocialLinks:    u.SocialLinks,
		Points:         u.Points,
		Level:          u.Level,
		StreakDays:     u.StreakDays,
		Badges:         []UserBadge{},
		JoinedAt:       u.CreatedAt,
	}
}

// PasswordReset tracks password reset tokens
type PasswordReset struct {
	Model
	UserID    string `gorm:"not null;index" json:"user_id"`
	TokenHash string `gorm:"uniqueIndex;not null" json:"-"`
	// Token is the raw value, set only when the reset is created
	Token     string    `gorm:"-" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
}

func (p *PasswordReset) Valid(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}
