package models

import "time"

// LearningPath is an ordered course of lessons
type LearningPath struct {
	Model
	ExternalID     *string     `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Title          string      `gorm:"not null" json:"title"`
	Slug           string      `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string      `gorm:"type:text" json:"description"`
	Level          Difficulty  `gorm:"type:varchar(16);default:beginner" json:"level"`
	EstimatedHours float64     `json:"estimated_hours"`
	CoverImageURL  string      `json:"cover_image_url"`
	Tags           StringArray `gorm:"type:text" json:"tags"`
	Published      bool        `gorm:"default:false;index" json:"published"`

	Lessons     []Lesson `gorm:"foreignKey:PathID" json:"lessons,omitempty"`
	LessonCount int      `gorm:"-" json:"lesson_count"`
}

// Lesson belongs to exactly one path
type Lesson struct {
	Model
	PathID          string `gorm:"not null;uniqueIndex:idx_lessons_path_position" json:"path_id"`
	Position        int    `gorm:"not null;uniqueIndex:idx_lessons_path_position" json:"position"`
	Title           string `gorm:"not null" json:"title"`
	Slug            string `gorm:"not null;index" json:"slug"`
	Body            string `gorm:"type:text" json:"body"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Enrollment links a user to a learning path
type Enrollment struct {
	Model
	UserID      string        `gorm:"not null;uniqueIndex:idx_enrollments_user_path" json:"user_id"`
	PathID      string        `gorm:"not null;uniqueIndex:idx_enrollments_user_path" json:"path_id"`
	Path        *LearningPath `gorm:"foreignKey:PathID" json:"path,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// LessonProgress records a completed lesson
type LessonProgress struct {
	Model
	UserID      string    `gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"user_id"`
	LessonID    string    `gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"lesson_id"`
	PathID      string    `gorm:"not null;index" json:"path_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// PathProgress summarises a user's progress through a path
type PathProgress struct {
	PathID      string     `json:"path_id"`
	Completed   int        `json:"completed"`
	Total       int        `json:"total"`
	Percent     int        `json:"percent"`
	Enrolled    bool       `json:"enrolled"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LessonIDs   []string   `json:"completed_lesson_ids"`
}

// ProgressPercent rounds down, and is 0 for an empty path
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return completed * 100 / total
}
