package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ForumCategory string

const (
	ForumGeneral      ForumCategory = "general"
	ForumShowcase     ForumCategory = "showcase"
	ForumHelp         ForumCategory = "help"
	ForumStrategy     ForumCategory = "strategy"
	ForumMonetization ForumCategory = "monetization"
	ForumTools        ForumCategory = "tools"
)

func (c ForumCategory) Valid() bool {
	switch c {
	case ForumGeneral, ForumShowcase, ForumHelp, ForumStrategy, ForumMonetization, ForumTools:
		return true
	}
	return false
}

// ForumPost is a community discussion thread
type ForumPost struct {
	Model
	AuthorID        string        `gorm:"not null;index" json:"author_id"`
	Author          *User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Category        ForumCategory `gorm:"type:varchar(16);not null;index" json:"category"`
	Title           string        `gorm:"not null" json:"title"`
	Slug            string        `gorm:"uniqueIndex;not null" json:"slug"`
	Body            string        `gorm:"type:text;not null" json:"body"`
	Tags            StringArray   `gorm:"type:text" json:"tags"`
	Pinned          bool          `gorm:"default:false;index" json:"pinned"`
	Locked          bool          `gorm:"default:false" json:"locked"`
	ReplyCount      int           `gorm:"default:0" json:"reply_count"`
	UpvoteCount     int           `gorm:"default:0" json:"upvote_count"`
	ViewCount       int           `gorm:"default:0" json:"view_count"`
	LastActivityAt  time.Time     `gorm:"index" json:"last_activity_at"`
	AcceptedReplyID *string       `json:"accepted_reply_id,omitempty"`

	Replies []ForumReply `gorm:"foreignKey:PostID" json:"replies,omitempty"`
}

// ForumReply is an answer in a thread
type ForumReply struct {
	Model
	PostID      string `gorm:"not null;index" json:"post_id"`
	AuthorID    string `gorm:"not null;index" json:"author_id"`
	Author      *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body        string `gorm:"type:text;not null" json:"body"`
	UpvoteCount int    `gorm:"default:0" json:"upvote_count"`
	Accepted    bool   `gorm:"default:false" json:"accepted"`
}

type VoteTarget string

const (
	VoteTargetPost  VoteTarget = "post"
	VoteTargetReply VoteTarget = "reply"
)

// ForumVote is one user's upvote on a post or reply
type ForumVote struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_forum_votes_unique" json:"user_id"`
	TargetType VoteTarget `gorm:"type:varchar(8);not null;uniqueIndex:idx_forum_votes_unique" json:"target_type"`
	TargetID   string     `gorm:"not null;uniqueIndex:idx_forum_votes_unique" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (v *ForumVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}
