package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) WithTx(tx *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: tx}
}

func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).Create(lesson).Error
}

func (r *LessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).Save(lesson).Error
}

func (r *LessonRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Lesson{}, id).Error
}

func (r *LessonRepository) FindByID(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).First(&lesson, id).Error
	return &lesson, err
}

func (r *LessonRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).Where("course_id = ?", courseID).
		Order("order_index ASC, id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

// NextOrderIndex 返回课程中下一个课时的排序号
func (r *LessonRepository) NextOrderIndex(ctx context.Context, courseID uint) (int, error) {
	var max *int
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 1, err
	}
	return *max + 1, nil
}
