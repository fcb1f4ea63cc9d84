package repository

import (
	"context"
	"learnsphere_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateProgress 写入进度、状态和完成时间
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id uint, percentage int, status model.EnrollmentStatus, completedDate *time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress_percentage": percentage,
			"status":              status,
			"completed_date":      completedDate,
		}).Error
}

func (r *EnrollmentRepository) MarkPaid(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).Where("id = ?", id).Update("is_paid", true).Error
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).Preload("User").
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) CountCompleted(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, model.EnrollmentCompleted).
		Count(&count).Error
	return count, err
}
