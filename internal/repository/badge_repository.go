package repository

import (
	"context"
	"errors"
	"learnsphere_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) WithTx(tx *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: tx}
}

func (r *BadgeRepository) FindByName(ctx context.Context, name string) (*model.Badge, error) {
	var badge model.Badge
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&badge).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *BadgeRepository) ListAll(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.WithContext(ctx).Order("points_required ASC, id ASC").Find(&badges).Error
	return badges, err
}

// Award 授予徽章，已持有时不做任何事并返回 false
func (r *BadgeRepository) Award(ctx context.Context, userID, badgeID uint, at time.Time) (bool, error) {
	ub := model.UserBadge{
		UserID:     userID,
		BadgeID:    badgeID,
		EarnedDate: at,
		IsNew:      true,
	}
	res := r.DB.WithContext(ctx).Omit("Badge").Clauses(clause.OnConflict{DoNothing: true}).Create(&ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BadgeRepository) ListUserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_date DESC, id DESC").
		Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) ListNew(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).Preload("Badge").
		Where("user_id = ? AND is_new = ?", userID, true).
		Order("earned_date DESC, id DESC").
		Find(&badges).Error
	return badges, err
}

// MarkViewed 用户未持有该徽章时返回 false
func (r *BadgeRepository) MarkViewed(ctx context.Context, userID, badgeID uint) (bool, error) {
	var ub model.UserBadge
	err := r.DB.WithContext(ctx).Where("user_id = ? AND badge_id = ?", userID, badgeID).First(&ub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ub.IsNew {
		return true, nil
	}
	return true, r.DB.WithContext(ctx).Model(&ub).Update("is_new", false).Error
}
