package service

import (
	"context"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"time"
)

const recentAchievements = 20

type AchievementService struct {
	AchievementRepo *repository.AchievementRepository
	EnrollmentRepo  *repository.EnrollmentRepository
	ProgressRepo    *repository.LessonProgressRepository
	QuizRepo        *repository.QuizRepository
	CertRepo        *repository.CertificateRepository
	Points          *PointsService
	Badges          *BadgeService
	Streaks         *StreakService
}

func NewAchievementService(
	achievementRepo *repository.AchievementRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.LessonProgressRepository,
	quizRepo *repository.QuizRepository,
	certRepo *repository.CertificateRepository,
	points *PointsService,
	badges *BadgeService,
	streaks *StreakService,
) *AchievementService {
	return &AchievementService{
		AchievementRepo: achievementRepo,
		EnrollmentRepo:  enrollmentRepo,
		ProgressRepo:    progressRepo,
		QuizRepo:        quizRepo,
		CertRepo:        certRepo,
		Points:          points,
		Badges:          badges,
		Streaks:         streaks,
	}
}

type Dashboard struct {
	Points           *PointsSummary      `json:"points"`
	CoursesCompleted int64               `json:"coursesCompleted"`
	LessonsCompleted int64               `json:"lessonsCompleted"`
	QuizzesPassed    int64               `json:"quizzesPassed"`
	Badges           []model.UserBadge   `json:"badges"`
	Achievements     []model.Achievement `json:"achievements"`
	Certificates     []model.Certificate `json:"certificates"`
	Streak           Streak              `json:"streak"`
}

// GetDashboard 汇总积分、徽章、成就、证书和连续学习数据
func (s *AchievementService) GetDashboard(ctx context.Context, userID uint, asOf time.Time) (*Dashboard, error) {
	summary, err := s.Points.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Points: summary}

	if d.CoursesCompleted, err = s.EnrollmentRepo.CountCompleted(ctx, userID); err != nil {
		return nil, err
	}
	if d.LessonsCompleted, err = s.ProgressRepo.CountCompleted(ctx, userID); err != nil {
		return nil, err
	}
	if d.QuizzesPassed, err = s.QuizRepo.CountPassedQuizzes(ctx, userID); err != nil {
		return nil, err
	}
	if d.Badges, err = s.Badges.ListUserBadges(ctx, userID); err != nil {
		return nil, err
	}
	if d.Achievements, err = s.AchievementRepo.FindByUserID(ctx, userID, recentAchievements); err != nil {
		return nil, err
	}
	if d.Certificates, err = s.CertRepo.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if d.Streak, err = s.Streaks.ComputeStreak(ctx, userID, asOf); err != nil {
		return nil, err
	}
	return d, nil
}
