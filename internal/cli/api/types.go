package api

import "time"

// User is the account shape the API returns
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Points      int    `json:"points"`
	Level       int    `json:"level"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	User      *User     `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Article struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Category       string     `json:"category"`
	Tags           []string   `json:"tags"`
	ReadingMinutes int        `json:"reading_minutes"`
	Published      bool       `json:"published"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Featured       bool       `json:"featured"`
	ViewCount      int        `json:"view_count"`
	LikeCount      int        `json:"like_count"`
}

// Page is the envelope of every paginated listing
type Page[T any] struct {
	Items  []T   `json:"items"`
	Count  int   `json:"count"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type ArticleQuery struct {
	Category string
	Tag      string
	Query    string
	Sort     string
	Limit    int
	Offset   int
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Level       int    `json:"level"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportReport struct {
	RunID      string     `json:"run_id,omitempty"`
	Entity     string     `json:"entity"`
	Format     string     `json:"format"`
	Filename   string     `json:"filename,omitempty"`
	DryRun     bool       `json:"dry_run"`
	Rows       int        `json:"rows"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Errors     []RowError `json:"errors"`
	DurationMS int64      `json:"duration_ms"`
}

type ReindexReport struct {
	Indexed  map[string]int `json:"indexed"`
	Failed   int            `json:"failed"`
	Duration time.Duration  `json:"duration"`
}
