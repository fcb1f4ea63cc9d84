package service

import (
	"context"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"math"
	"strings"

	"gorm.io/gorm"
)

type ReviewService struct {
	DB         *gorm.DB
	ReviewRepo *repository.ReviewRepository
	CourseRepo *repository.CourseRepository
}

func NewReviewService(db *gorm.DB, reviewRepo *repository.ReviewRepository, courseRepo *repository.CourseRepository) *ReviewService {
	return &ReviewService{DB: db, ReviewRepo: reviewRepo, CourseRepo: courseRepo}
}

type ReviewRequest struct {
	Rating     int    `json:"rating" binding:"required"`
	ReviewText string `json:"reviewText" binding:"max=5000"`
}

// Upsert 每个学员对每门课只有一条评价，再次提交即修改
func (s *ReviewService) Upsert(ctx context.Context, userID, courseID uint, req ReviewRequest) (*model.CourseReview, bool, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, false, util.ErrInvalidRating
	}

	var (
		review  *model.CourseReview
		created bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.CourseRepo.WithTx(tx).FindByID(ctx, courseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrCourseNotFound
			}
			return err
		}

		reviews := s.ReviewRepo.WithTx(tx)
		existing, err := reviews.FindByUserCourse(ctx, userID, courseID)
		switch {
		case err == nil:
			existing.Rating = req.Rating
			existing.ReviewText = strings.TrimSpace(req.ReviewText)
			if err := reviews.Update(ctx, existing); err != nil {
				return err
			}
			review = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = &model.CourseReview{
				UserID:     userID,
				CourseID:   courseID,
				Rating:     req.Rating,
				ReviewText: strings.TrimSpace(req.ReviewText),
			}
			if err := reviews.Create(ctx, review); err != nil {
				return err
			}
			created = true
		default:
			return err
		}
		return s.refreshRating(ctx, tx, courseID)
	})
	if err != nil {
		return nil, false, err
	}
	return review, created, nil
}

// Delete 只能删除自己的评价
func (s *ReviewService) Delete(ctx context.Context, userID, courseID, reviewID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := s.ReviewRepo.WithTx(tx)
		review, err := reviews.FindByID(ctx, reviewID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && review.CourseID != courseID) {
			return util.ErrReviewNotFound
		}
		if err != nil {
			return err
		}
		if review.UserID != userID {
			return util.ErrPermissionDenied
		}
		if err := reviews.Delete(ctx, review.ID); err != nil {
			return err
		}
		return s.refreshRating(ctx, tx, courseID)
	})
}

func (s *ReviewService) List(ctx context.Context, courseID uint) ([]model.CourseReview, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return s.ReviewRepo.ListByCourse(ctx, courseID)
}

// refreshRating 平均分保留两位小数
func (s *ReviewService) refreshRating(ctx context.Context, tx *gorm.DB, courseID uint) error {
	stats, err := s.ReviewRepo.WithTx(tx).Stats(ctx, courseID)
	if err != nil {
		return err
	}
	avg := math.Round(stats.Average*100) / 100
	return s.CourseRepo.WithTx(tx).UpdateRating(ctx, courseID, avg, stats.Total)
}
