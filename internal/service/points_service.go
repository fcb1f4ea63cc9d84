package service

import (
	"context"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"learnsphere_backend/pkg/tracing"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 固定奖励
const (
	PointsLessonCompletion = 10
	PointsCourseCompletion = 100
)

func lessonSourceKey(lessonID uint) string {
	return "lesson:" + uintString(lessonID)
}

func courseSourceKey(courseID uint) string {
	return "course:" + uintString(courseID)
}

func quizAttemptSourceKey(attemptID uint) string {
	return "quiz_attempt:" + uintString(attemptID)
}

type PointsService struct {
	DB        *gorm.DB
	PointRepo *repository.PointRepository
	Notifier  Notifier
}

func NewPointsService(db *gorm.DB, pointRepo *repository.PointRepository, notifier Notifier) *PointsService {
	return &PointsService{
		DB:        db,
		PointRepo: pointRepo,
		Notifier:  notifier,
	}
}

type AwardResult struct {
	NewTotal      int        `json:"newTotal"`
	BadgeLevel    BadgeLevel `json:"badgeLevel"`
	PreviousLevel BadgeLevel `json:"previousLevel"`
	Awarded       bool       `json:"awarded"`
}

// Award 追加一条积分流水并刷新缓存
func (s *PointsService) Award(ctx context.Context, userID uint, points int, reason string) (*AwardResult, error) {
	return s.awardInTx(ctx, userID, points, reason, nil)
}

// AwardOnce 同一 sourceKey 对同一用户只入账一次，重复调用返回 Awarded=false
func (s *PointsService) AwardOnce(ctx context.Context, userID uint, points int, reason, sourceKey string) (*AwardResult, error) {
	return s.awardInTx(ctx, userID, points, reason, &sourceKey)
}

func (s *PointsService) awardInTx(ctx context.Context, userID uint, points int, reason string, sourceKey *string) (*AwardResult, error) {
	var result *AwardResult
	var pc postCommit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.award(ctx, tx, &pc, userID, points, reason, sourceKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	pc.run(ctx)
	return result, nil
}

// award 在调用方的事务内执行，总分始终由流水求和得到
func (s *PointsService) award(ctx context.Context, tx *gorm.DB, pc *postCommit, userID uint, points int, reason string, sourceKey *string) (*AwardResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PointsService.award")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)), attribute.Int("points", points))

	repo := s.PointRepo.WithTx(tx)

	entry := &model.PointEntry{
		UserID:     userID,
		SourceKey:  sourceKey,
		Points:     points,
		Reason:     reason,
		EarnedDate: time.Now().UTC(),
	}
	awarded, err := repo.Append(ctx, entry)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	total, err := repo.SumByUser(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	level := BadgeLevelFor(total)
	if err := repo.UpsertTotal(ctx, userID, total, string(level)); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	result := &AwardResult{
		NewTotal:      total,
		BadgeLevel:    level,
		PreviousLevel: level,
		Awarded:       awarded,
	}
	if !awarded {
		return result, nil
	}

	result.PreviousLevel = BadgeLevelFor(total - points)
	category := sourceCategory(sourceKey)
	pc.add(func(ctx context.Context) {
		monitoring.PointsAwarded.WithLabelValues(category).Add(float64(points))
	})
	if result.BadgeLevel.Rank() > result.PreviousLevel.Rank() {
		pc.add(func(ctx context.Context) {
			notify(ctx, s.Notifier, Notification{
				Type:   NotifyLevelUp,
				UserID: userID,
				Payload: map[string]interface{}{
					"level":       result.BadgeLevel,
					"totalPoints": total,
				},
			})
		})
	}
	return result, nil
}

// sourceCategory 指标标签，取来源键前缀
func sourceCategory(sourceKey *string) string {
	if sourceKey == nil {
		return "manual"
	}
	if i := strings.IndexByte(*sourceKey, ':'); i > 0 {
		return (*sourceKey)[:i]
	}
	return "other"
}

type PointsSummary struct {
	TotalPoints       int        `json:"totalPoints"`
	BadgeLevel        BadgeLevel `json:"badgeLevel"`
	NextLevel         BadgeLevel `json:"nextLevel,omitempty"`
	PointsToNextLevel int        `json:"pointsToNextLevel"`
}

// Summary 读取时以流水为准，首次访问的学员会初始化为 0 分
func (s *PointsService) Summary(ctx context.Context, userID uint) (*PointsSummary, error) {
	total, err := s.PointRepo.SumByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	level := BadgeLevelFor(total)

	cached, err := s.PointRepo.FindTotal(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if cached == nil || cached.TotalPoints != total {
		if err := s.PointRepo.UpsertTotal(ctx, userID, total, string(level)); err != nil {
			return nil, err
		}
	}

	summary := &PointsSummary{TotalPoints: total, BadgeLevel: level}
	if next, threshold, ok := level.Next(); ok {
		summary.NextLevel = next
		summary.PointsToNextLevel = threshold - total
	}
	return summary, nil
}

func (s *PointsService) History(ctx context.Context, userID uint, page, limit int) ([]model.PointEntry, int64, error) {
	return s.PointRepo.History(ctx, userID, page, limit)
}

type LeaderboardEntry struct {
	Rank int `json:"rank"`
	repository.LeaderboardRow
}

func (s *PointsService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.PointRepo.TopTotals(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{Rank: i + 1, LeaderboardRow: row}
	}
	return entries, nil
}

// ReconcileTotals 用流水重建全部积分缓存，返回处理的用户数
func (s *PointsService) ReconcileTotals(ctx context.Context) (int, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PointsService.ReconcileTotals")
	defer span.End()

	sums, err := s.PointRepo.SumAll(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return 0, err
	}

	for _, sum := range sums {
		if err := s.PointRepo.UpsertTotal(ctx, sum.UserID, sum.Total, string(BadgeLevelFor(sum.Total))); err != nil {
			tracing.RecordError(span, err)
			return 0, err
		}
	}

	logger.Log.Info("Point totals reconciled", zap.Int("users", len(sums)))
	return len(sums), nil
}
