package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: tx}
}

func (r *AchievementRepository) Create(ctx context.Context, a *model.Achievement) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AchievementRepository) FindByUserID(ctx context.Context, userID uint, limit int) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("achieved_date DESC, id DESC").
		Limit(limit).
		Find(&achievements).Error
	return achievements, err
}
