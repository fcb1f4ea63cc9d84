package repository

import (
	"context"
	"learnsphere_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uint, role model.UserRole) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login", at).Error
}

// List 分页查询用户，role 为空时不过滤
func (r *UserRepository) List(ctx context.Context, role model.UserRole, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id ASC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}
