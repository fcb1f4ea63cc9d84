package repository

import (
	"context"
	"learnsphere_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonProgressRepository struct {
	DB *gorm.DB
}

func NewLessonProgressRepository(db *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{DB: db}
}

func (r *LessonProgressRepository) WithTx(tx *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{DB: tx}
}

func (r *LessonProgressRepository) Find(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.DB.WithContext(ctx).Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindCommitted 唯一键冲突后读取并发事务已提交的记录
func (r *LessonProgressRepository) FindCommitted(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	db := r.DB.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "SHARE"})
	}
	var p model.LessonProgress
	err := db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LessonProgressRepository) Create(ctx context.Context, p *model.LessonProgress) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *LessonProgressRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.LessonProgress{}).Where("id = ?", id).Updates(fields).Error
}

// CompleteAll 将给定课时全部标记为完成，已有的完成时间保持不变
func (r *LessonProgressRepository) CompleteAll(ctx context.Context, userID uint, lessons []model.Lesson, at time.Time) error {
	if len(lessons) == 0 {
		return nil
	}
	db := r.DB.WithContext(ctx)

	ids := make([]uint, 0, len(lessons))
	rows := make([]model.LessonProgress, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
		rows = append(rows, model.LessonProgress{
			UserID:      userID,
			LessonID:    l.ID,
			CourseID:    l.CourseID,
			Status:      model.LessonCompleted,
			IsCompleted: true,
			CompletedAt: &at,
		})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return err
	}

	return db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ? AND is_completed = ?", userID, ids, false).
		Updates(map[string]interface{}{
			"status":       model.LessonCompleted,
			"is_completed": true,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", at),
		}).Error
}

// CountCompletedInCourse 只统计当前仍属于该课程的课时
func (r *LessonProgressRepository) CountCompletedInCourse(ctx context.Context, userID, courseID uint) (int64, error) {
	db := r.DB.WithContext(ctx)
	var count int64
	err := db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Where("lesson_id IN (?)", db.Model(&model.Lesson{}).Select("id").Where("course_id = ?", courseID)).
		Count(&count).Error
	return count, err
}

func (r *LessonProgressRepository) ListInCourse(ctx context.Context, userID, courseID uint) ([]model.LessonProgress, error) {
	db := r.DB.WithContext(ctx)
	var rows []model.LessonProgress
	err := db.Where("user_id = ?", userID).
		Where("lesson_id IN (?)", db.Model(&model.Lesson{}).Select("id").Where("course_id = ?", courseID)).
		Find(&rows).Error
	return rows, err
}

// CompletionTimes 返回学员所有课时的完成时间
func (r *LessonProgressRepository) CompletionTimes(ctx context.Context, userID uint) ([]time.Time, error) {
	var times []time.Time
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("user_id = ? AND is_completed = ? AND completed_at IS NOT NULL", userID, true).
		Order("completed_at ASC").
		Pluck("completed_at", &times).Error
	return times, err
}

func (r *LessonProgressRepository) CountCompleted(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&count).Error
	return count, err
}
