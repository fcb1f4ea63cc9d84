package service

import (
	"context"
	"learnsphere_backend/internal/repository"
	"time"
)

type StreakService struct {
	ProgressRepo *repository.LessonProgressRepository
	CalendarDays int
}

func NewStreakService(progressRepo *repository.LessonProgressRepository, calendarDays int) *StreakService {
	if calendarDays <= 0 {
		calendarDays = 60
	}
	return &StreakService{ProgressRepo: progressRepo, CalendarDays: calendarDays}
}

// ComputeStreak 以课时完成时间为准，只读
func (s *StreakService) ComputeStreak(ctx context.Context, userID uint, asOf time.Time) (Streak, error) {
	times, err := s.ProgressRepo.CompletionTimes(ctx, userID)
	if err != nil {
		return Streak{}, err
	}
	return ComputeStreak(times, asOf, s.CalendarDays), nil
}
