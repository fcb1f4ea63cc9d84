package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

// Create 同时写入题目
func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

// FindByID 题目按 order_index, id 排序，判分依赖该顺序
func (r *QuizRepository) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) ExistsForLesson(ctx context.Context, lessonID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Quiz{}).Where("lesson_id = ?", lessonID).Count(&count).Error
	return count > 0, err
}

func (r *QuizRepository) CountAttempts(ctx context.Context, userID, quizID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}

// CreateAttempt 尝试序号冲突时返回 gorm.ErrDuplicatedKey
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *QuizRepository) ListAttempts(ctx context.Context, userID, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

// CountPassedQuizzes 统计至少通过一次的测验数
func (r *QuizRepository) CountPassedQuizzes(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("user_id = ? AND passed = ?", userID, true).
		Distinct("quiz_id").
		Count(&count).Error
	return count, err
}
