package models

import "time"

type SubscriberStatus string

const (
	SubscriberPending      SubscriberStatus = "pending"
	SubscriberConfirmed    SubscriberStatus = "confirmed"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is a newsletter signup
type Subscriber struct {
	Model
	Email          string           `gorm:"uniqueIndex;not null" json:"email"`
	Status         SubscriberStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Token          string           `gorm:"uniqueIndex;not null" json:"-"`
	Source         string           `json:"source,omitempty"`
	ConfirmedAt    *time.Time       `json:"confirmed_at,omitempty"`
	UnsubscribedAt *time.Time       `json:"unsubscribed_at,omitempty"`
}
