package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointEvent is one ledger row of awarded points.
// (user_id, action, ref_id) is unique so awards are idempotent.
type PointEvent struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_point_events_unique;index" json:"user_id"`
	Action    string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_point_events_unique" json:"action"`
	RefID     string    `gorm:"not null;uniqueIndex:idx_point_events_unique" json:"ref_id"`
	Points    int       `gorm:"not null" json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBadge records a badge a user has earned
type UserBadge struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_user_badges_unique" json:"user_id"`
	BadgeKey  string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_user_badges_unique" json:"badge"`
	AwardedAt time.Time `json:"awarded_at"`
}

func (e *PointEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (b *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
