package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type AttachmentRepository struct {
	DB *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{DB: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *model.LessonAttachment) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AttachmentRepository) ListByLesson(ctx context.Context, lessonID uint) ([]model.LessonAttachment, error) {
	var list []model.LessonAttachment
	err := r.DB.WithContext(ctx).Where("lesson_id = ?", lessonID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *AttachmentRepository) FindByIDAndLesson(ctx context.Context, id, lessonID uint) (*model.LessonAttachment, error) {
	var a model.LessonAttachment
	err := r.DB.WithContext(ctx).Where("id = ? AND lesson_id = ?", id, lessonID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.LessonAttachment{}, id).Error
}
