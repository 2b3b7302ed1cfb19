package gamification

// Badge is an achievement awarded once per member
type Badge struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// stats is what badge rules look at
type stats struct {
	counts map[Action]int64
	level  int
	streak int
}

type badgeRule struct {
	Badge
	earned func(stats) bool
}

func countAtLeast(a Action, n int64) func(stats) bool {
	return func(s stats) bool { return s.counts[a] >= n }
}

var badgeRules = []badgeRule{
	{Badge{"first_post", "First Post", "Started your first forum thread"}, countAtLeast(ActionForumPost, 1)},
	{Badge{"conversation_starter", "Conversation Starter", "Started 10 forum threads"}, countAtLeast(ActionForumPost, 10)},
	{Badge{"helpful", "Helpful", "Had a reply accepted as the answer"}, countAtLeast(ActionReplyAccepted, 1)},
	{Badge{"scholar", "Scholar", "Completed 10 lessons"}, countAtLeast(ActionLessonComplete, 10)},
	{Badge{"graduate", "Graduate", "Completed a learning path"}, countAtLeast(ActionPathComplete, 1)},
	{Badge{"collector", "Collector", "Downloaded 10 templates"}, countAtLeast(ActionTemplateDownload, 10)},
	{Badge{"rising_star", "Rising Star", "Reached level 5"}, func(s stats) bool { return s.level >= 5 }},
	{Badge{"veteran", "Veteran", "Reached level 10"}, func(s stats) bool { return s.level >= 10 }},
	{Badge{"on_fire", "On Fire", "Checked in 7 days in a row"}, func(s stats) bool { return s.streak >= 7 }},
}

// Catalog lists every badge in display order
func Catalog() []Badge {
	out := make([]Badge, len(badgeRules))
	for i, r := range badgeRules {
		out[i] = r.Badge
	}
	return out
}

// BadgeByKey looks up a badge definition
func BadgeByKey(key string) (Badge, bool) {
	for _, r := range badgeRules {
		if r.Key == key {
			return r.Badge, true
		}
	}
	return Badge{}, false
}

// earnedBadges returns the badges s qualifies for that are not in have
func earnedBadges(s stats, have map[string]bool) []Badge {
	var out []Badge
	for _, r := range badgeRules {
		if !have[r.Key] && r.earned(s) {
			out = append(out, r.Badge)
		}
	}
	return out
}
