package service

import (
	"context"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) List(ctx context.Context, role model.UserRole, page, limit int) ([]model.User, int64, error) {
	if role != "" && !role.Valid() {
		return nil, 0, util.ErrInvalidRole
	}
	return s.UserRepo.List(ctx, role, page, limit)
}

func (s *UserService) UpdateRole(ctx context.Context, userID uint, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, util.ErrInvalidRole
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}
