package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Omit("Lessons").Save(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) FindWithLessons(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		First(&course, id).Error
	return &course, err
}

// Delete 删除课程及其课时
func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

// ListPublished 分页查询已发布课程，keyword 匹配标题
func (r *CourseRepository) ListPublished(ctx context.Context, keyword string, page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Course{}).Where("published = ?", true)
	if keyword != "" {
		query = query.Where("title LIKE ?", "%"+keyword+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Where("instructor_id = ?", instructorID).Order("id DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) UpdateRating(ctx context.Context, id uint, average float64, total int) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"average_rating": average,
			"total_reviews":  total,
		}).Error
}
