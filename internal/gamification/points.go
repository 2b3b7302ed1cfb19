// Package gamification awards points and badges, tracks levels and daily
// streaks, and maintains the points leaderboard.
package gamification

import (
	"math"
	"time"
)

// Action is something a member does that earns points
type Action string

const (
	ActionDailyLogin          Action = "daily_login"
	ActionArticleRead         Action = "article_read"
	ActionArticleLike         Action = "article_like"
	ActionLessonComplete      Action = "lesson_complete"
	ActionPathComplete        Action = "path_complete"
	ActionForumPost           Action = "forum_post"
	ActionForumReply          Action = "forum_reply"
	ActionReplyAccepted       Action = "reply_accepted"
	ActionTemplateDownload    Action = "template_download"
	ActionProfileComplete     Action = "profile_complete"
	ActionNewsletterSubscribe Action = "newsletter_subscribe"
)

var pointTable = map[Action]int{
	ActionDailyLogin:          5,
	ActionArticleRead:         2,
	ActionArticleLike:         1,
	ActionLessonComplete:      10,
	ActionPathComplete:        100,
	ActionForumPost:           15,
	ActionForumReply:          5,
	ActionReplyAccepted:       25,
	ActionTemplateDownload:    3,
	ActionProfileComplete:     20,
	ActionNewsletterSubscribe: 10,
}

// PointsFor returns the value of an action, 0 for unknown actions
func PointsFor(a Action) int {
	return pointTable[a]
}

// Valid reports whether a is in the point table
func (a Action) Valid() bool {
	_, ok := pointTable[a]
	return ok
}

const pointsPerLevelUnit = 50

// LevelFor is floor(sqrt(points/50)) + 1
func LevelFor(points int) int {
	if points <= 0 {
		return 1
	}
	return int(math.Sqrt(float64(points)/pointsPerLevelUnit)) + 1
}

// PointsForLevel is the total needed to reach level n
func PointsForLevel(n int) int {
	if n <= 1 {
		return 0
	}
	return pointsPerLevelUnit * (n - 1) * (n - 1)
}

// LevelProgress is how far points are between the current and next level,
// in whole percent
func LevelProgress(points int) int {
	level := LevelFor(points)
	floor := PointsForLevel(level)
	span := PointsForLevel(level+1) - floor
	if span <= 0 {
		return 0
	}
	return (points - floor) * 100 / span
}

const dateLayout = "2006-01-02"

// Day formats t as the UTC calendar date used for streaks and daily refs
func Day(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// nextStreak returns the streak after checking in on today given the
// previous check-in date
func nextStreak(lastDate, today string, current int) int {
	if lastDate == today {
		return current
	}
	t, err := time.Parse(dateLayout, today)
	if err != nil {
		return 1
	}
	if lastDate == t.AddDate(0, 0, -1).Format(dateLayout) {
		return current + 1
	}
	return 1
}
