package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: tx}
}

func (r *ReviewRepository) FindByUserCourse(ctx context.Context, userID, courseID uint) (*model.CourseReview, error) {
	var review model.CourseReview
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, id uint) (*model.CourseReview, error) {
	var review model.CourseReview
	err := r.DB.WithContext(ctx).First(&review, id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review *model.CourseReview) error {
	return r.DB.WithContext(ctx).Omit("User").Create(review).Error
}

func (r *ReviewRepository) Update(ctx context.Context, review *model.CourseReview) error {
	return r.DB.WithContext(ctx).Model(review).
		Updates(map[string]interface{}{
			"rating":      review.Rating,
			"review_text": review.ReviewText,
		}).Error
}

func (r *ReviewRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.CourseReview{}, id).Error
}

func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.CourseReview, error) {
	var reviews []model.CourseReview
	err := r.DB.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name")
		}).
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	return reviews, err
}

type ReviewStats struct {
	Average float64
	Total   int
}

func (r *ReviewRepository) Stats(ctx context.Context, courseID uint) (ReviewStats, error) {
	var stats ReviewStats
	err := r.DB.WithContext(ctx).Model(&model.CourseReview{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("course_id = ?", courseID).
		Scan(&stats).Error
	return stats, err
}
