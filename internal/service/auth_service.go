package service

import (
	"context"
	"errors"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo   *repository.UserRepository
	Cfg        *config.Config
	BcryptCost int
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:   userRepo,
		Cfg:        cfg,
		BcryptCost: bcrypt.DefaultCost,
	}
}

type RegisterRequest struct {
	FullName string         `json:"fullName" binding:"required,max=255"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=8,max=72"`
	Role     model.UserRole `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 注册只能选择学员或讲师角色
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.Learner
	}
	if role != model.Learner && role != model.Instructor {
		return nil, util.ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return &LoginResponse{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}
