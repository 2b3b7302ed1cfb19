package repository

import (
	"context"
	"errors"
	"time"

	"github.com/contentanonymity/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionResult describes what a lesson completion changed
type CompletionResult struct {
	Lesson         *models.Lesson
	NewlyCompleted bool
	NewlyEnrolled  bool
	PathCompleted  bool // true only on the completion that finished the path
	Progress       models.PathProgress
}

// LearningRepository handles enrollment and lesson progress
type LearningRepository interface {
	GetPathWithLessons(ctx context.Context, idOrSlug string, includeUnpublished bool) (*models.LearningPath, error)
	GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	CountLessons(ctx context.Context, pathIDs []string) (map[string]int, error)

	Enroll(ctx context.Context, userID, pathID string) (*models.Enrollment, bool, error)
	CompleteLesson(ctx context.Context, userID string, lesson *models.Lesson) (*CompletionResult, error)
	Progress(ctx context.Context, userID, pathID string) (models.PathProgress, error)
	Enrollments(ctx context.Context, userID string) ([]models.Enrollment, error)
	CountCompletedLessons(ctx context.Context, userID string) (int64, error)
}

type learningRepository struct {
	db *gorm.DB
}

func NewLearningRepository(db *gorm.DB) LearningRepository {
	return &learningRepository{db: db}
}

func (r *learningRepository) GetPathWithLessons(ctx context.Context, idOrSlug string, includeUnpublished bool) (*models.LearningPath, error) {
	q := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug)
	if !includeUnpublished {
		q = q.Where("published = ?", true)
	}

	var path models.LearningPath
	if err := q.First(&path).Error; err != nil {
		return nil, translate(err)
	}
	if path.Lessons == nil {
		path.Lessons = []models.Lesson{}
	}
	path.LessonCount = len(path.Lessons)
	return &path, nil
}

func (r *learningRepository) GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		return nil, translate(err)
	}
	return &lesson, nil
}

// CreateLesson appends at the end of the path when no position is given
func (r *learningRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lesson.Position <= 0 {
			var maxPos int64
			if err := tx.Unscoped().Model(&models.Lesson{}).
				Where("path_id = ?", lesson.PathID).
				Select("COALESCE(MAX(position), 0)").
				Row().Scan(&maxPos); err != nil {
				return err
			}
			lesson.Position = int(maxPos) + 1
		}
		return translate(tx.Create(lesson).Error)
	})
}

func (r *learningRepository) CountLessons(ctx context.Context, pathIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(pathIDs))
	if len(pathIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PathID string
		N      int
	}
	err := r.db.WithContext(ctx).Model(&models.Lesson{}).
		Select("path_id, COUNT(*) AS n").
		Where("path_id IN ?", pathIDs).
		Group("path_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PathID] = row.N
	}
	return out, nil
}

// Enroll is idempotent; the bool reports whether a new enrollment was created
func (r *learningRepository) Enroll(ctx context.Context, userID, pathID string) (*models.Enrollment, bool, error) {
	var enrollment *models.Enrollment
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		enrollment, created, err = enroll(tx, userID, pathID)
		return err
	})
	return enrollment, created, err
}

func enroll(tx *gorm.DB, userID, pathID string) (*models.Enrollment, bool, error) {
	var existing models.Enrollment
	err := tx.Where("user_id = ? AND path_id = ?", userID, pathID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	enrollment := models.Enrollment{UserID: userID, PathID: pathID, StartedAt: time.Now().UTC()}
	if err := tx.Omit(clause.Associations).Create(&enrollment).Error; err != nil {
		return nil, false, translate(err)
	}
	return &enrollment, true, nil
}

// CompleteLesson records completion, auto-enrolls, and completes the
// enrollment when every lesson of the path is done.
func (r *learningRepository) CompleteLesson(ctx context.Context, userID string, lesson *models.Lesson) (*CompletionResult, error) {
	result := &CompletionResult{Lesson: lesson}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, created, err := enroll(tx, userID, lesson.PathID)
		if err != nil {
			return err
		}
		result.NewlyEnrolled = created

		var count int64
		if err := tx.Model(&models.LessonProgress{}).
			Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			progress := models.LessonProgress{
				UserID:      userID,
				LessonID:    lesson.ID,
				PathID:      lesson.PathID,
				CompletedAt: time.Now().UTC(),
			}
			if err := tx.Create(&progress).Error; err != nil {
				return translate(err)
			}
			result.NewlyCompleted = true
		}

		p, err := progressFor(tx, userID, lesson.PathID)
		if err != nil {
			return err
		}

		if p.Total > 0 && p.Completed >= p.Total && enrollment.CompletedAt == nil {
			now := time.Now().UTC()
			if err := tx.Model(enrollment).UpdateColumn("completed_at", now).Error; err != nil {
				return err
			}
			enrollment.CompletedAt = &now
			result.PathCompleted = true
		}
		p.Enrolled = true
		p.CompletedAt = enrollment.CompletedAt
		result.Progress = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *learningRepository) Progress(ctx context.Context, userID, pathID string) (models.PathProgress, error) {
	db := r.db.WithContext(ctx)
	p, err := progressFor(db, userID, pathID)
	if err != nil {
		return p, err
	}

	var enrollment models.Enrollment
	err = db.Where("user_id = ? AND path_id = ?", userID, pathID).First(&enrollment).Error
	switch {
	case err == nil:
		p.Enrolled = true
		p.CompletedAt = enrollment.CompletedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return p, err
	}
	return p, nil
}

// progressFor counts only lessons that still exist in the path
func progressFor(db *gorm.DB, userID, pathID string) (models.PathProgress, error) {
	p := models.PathProgress{PathID: pathID, LessonIDs: []string{}}

	var total int64
	if err := db.Model(&models.Lesson{}).Where("path_id = ?", pathID).Count(&total).Error; err != nil {
		return p, err
	}

	var done []string
	if err := db.Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_progresses.user_id = ? AND lesson_progresses.path_id = ?", userID, pathID).
		Order("lessons.position").
		Pluck("lesson_progresses.lesson_id", &done).Error; err != nil {
		return p, err
	}

	p.Total = int(total)
	p.Completed = len(done)
	p.LessonIDs = done
	p.Percent = models.ProgressPercent(p.Completed, p.Total)
	return p, nil
}

func (r *learningRepository) Enrollments(ctx context.Context, userID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Path").
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&out).Error
	return out, err
}

func (r *learningRepository) CountCompletedLessons(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.LessonProgress{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
