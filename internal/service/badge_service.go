package service

import (
	"context"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BadgeService struct {
	BadgeRepo *repository.BadgeRepository
	Notifier  Notifier
}

func NewBadgeService(badgeRepo *repository.BadgeRepository, notifier Notifier) *BadgeService {
	return &BadgeService{BadgeRepo: badgeRepo, Notifier: notifier}
}

// awardByName 在调用方事务内授予目录中的徽章，目录中没有该徽章时跳过
func (s *BadgeService) awardByName(ctx context.Context, tx *gorm.DB, pc *postCommit, userID uint, name string) (bool, error) {
	repo := s.BadgeRepo.WithTx(tx)
	badge, err := repo.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Warn("Badge missing from catalog", zap.String("badge", name))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	awarded, err := repo.Award(ctx, userID, badge.ID, time.Now().UTC())
	if err != nil || !awarded {
		return false, err
	}

	pc.add(func(ctx context.Context) {
		notify(ctx, s.Notifier, Notification{
			Type:    NotifyBadgeEarned,
			UserID:  userID,
			Payload: map[string]interface{}{"badgeId": badge.ID, "name": badge.Name},
		})
	})
	return true, nil
}

func (s *BadgeService) ListUserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	return s.BadgeRepo.ListUserBadges(ctx, userID)
}

// NewBadges 尚未查看过的徽章
func (s *BadgeService) NewBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	return s.BadgeRepo.ListNew(ctx, userID)
}

func (s *BadgeService) MarkViewed(ctx context.Context, userID, badgeID uint) error {
	found, err := s.BadgeRepo.MarkViewed(ctx, userID, badgeID)
	if err != nil {
		return err
	}
	if !found {
		return util.ErrBadgeNotFound
	}
	return nil
}

func (s *BadgeService) Catalog(ctx context.Context) ([]model.Badge, error) {
	return s.BadgeRepo.ListAll(ctx)
}
